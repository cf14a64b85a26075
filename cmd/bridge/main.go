package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/Ojal2/taskbridge/internal/config"
	"github.com/Ojal2/taskbridge/internal/dispatch"
	"github.com/Ojal2/taskbridge/internal/hosting"
	"github.com/Ojal2/taskbridge/internal/reposync"
	"github.com/Ojal2/taskbridge/internal/storage"

	submissionEndpoint "github.com/Ojal2/taskbridge/internal/submission/endpoint"
	submissionService "github.com/Ojal2/taskbridge/internal/submission/service"
)

var (
	app     *cli.App
	version string

	bridgeConfig config.BridgeConfig

	submissionHTTPEndpoint *submissionEndpoint.SubmissionHTTPEndpoint
	dispatchQueue          *dispatch.Queue
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var err error
	bridgeConfig, err = config.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}

	app = cli.NewApp()
	app.Name = "taskbridge"
	app.Usage = "task submission to repository bridge"
	app.Version = version

	app.Action = func(c *cli.Context) error {
		serve()
		return nil
	}
	app.Run(os.Args)
}

func serve() {
	hostingClient := hosting.NewGithubClient(
		bridgeConfig.Hosting.APIBase,
		bridgeConfig.Hosting.Token,
		time.Duration(bridgeConfig.Hosting.TimeoutSeconds)*time.Second,
	)
	synchronizer := reposync.NewSynchronizer(hostingClient)

	dispatcher := dispatch.NewDispatcher(
		time.Duration(bridgeConfig.Dispatch.TimeoutSeconds)*time.Second,
		bridgeConfig.Dispatch.MaxRetries,
		time.Duration(bridgeConfig.Dispatch.InitialDelaySeconds)*time.Second,
	)

	var journal submissionService.Journal
	if bridgeConfig.Journal.Enabled {
		db, err := storage.NewDB(bridgeConfig.Journal.Path)
		if err != nil {
			log.Fatalln(err)
		}
		journal = storage.NewSubmissionStore(db, bridgeConfig.Journal.MaxRecords)
		log.Println("Submission journal enabled at " + bridgeConfig.Journal.Path)
	}

	var service *submissionService.SubmissionService
	if bridgeConfig.Dispatch.Mode == submissionService.ModeAsync {
		dispatchQueue = dispatch.NewQueue(dispatcher, 64, func(deliveryID string, delivered bool) {
			service.MarkDispatched(deliveryID, delivered)
		})
	}
	service = submissionService.NewSubmissionService(
		bridgeConfig.Server.Secret,
		bridgeConfig.Dispatch.Mode,
		synchronizer,
		dispatcher,
		dispatchQueue,
		journal,
		version,
	)
	if dispatchQueue != nil {
		dispatchQueue.Start()
		log.Println("Dispatch queue started (async mode)")
	}

	submissionHTTPEndpoint = submissionEndpoint.NewSubmissionHTTPEndpoint(service)

	// APIs
	http.HandleFunc("/api-endpoint", submissionHTTPEndpoint.SubmitHandler)
	http.HandleFunc("/api/v1/submissions", submissionHTTPEndpoint.SubmissionListHandler)
	http.HandleFunc("/api/v1/version", submissionHTTPEndpoint.VersionHandler)

	// Index handler (catch-all, must be registered last)
	http.HandleFunc("/", submissionHTTPEndpoint.IndexHandler)

	port := os.Getenv("PORT")
	if len(port) < 1 {
		port = "8080"
	}
	log.Println("taskbridge now live on port " + port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
