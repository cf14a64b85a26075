package main

import (
	b64 "encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/imroc/req"
	"github.com/inconshreveable/go-update"
	"github.com/manifoldco/promptui"
	"github.com/urfave/cli"

	"github.com/Ojal2/taskbridge/internal/submission/entity"
)

type GithubReleaseResponse struct {
	Url    string `json:"url"`
	Assets []struct {
		Name               string `json:"name"`
		BrowserDownloadUrl string `json:"browser_download_url"`
	}
}

var (
	app              *cli.App
	homeDir          string
	serverAddress    string
	submissionSecret string
	email            string
	task             string
	round            int
	brief            string
	evaluationURL    string
	attachmentPaths  cli.StringSlice
	historyLimit     int
	version          string
)

func checkForInitValues() (err error) {
	dat0, _ := ioutil.ReadFile(homeDir + "/.taskbridge/TASKBRIDGE_SERVER_ADDRESS")
	serverAddress = strings.TrimSpace(string(dat0))
	dat1, _ := ioutil.ReadFile(homeDir + "/.taskbridge/TASKBRIDGE_SECRET")
	submissionSecret = strings.TrimSpace(string(dat1))
	dat2, _ := ioutil.ReadFile(homeDir + "/.taskbridge/TASKBRIDGE_EMAIL")
	email = strings.TrimSpace(string(dat2))
	if len(serverAddress) < 1 || len(submissionSecret) < 1 {
		errMsg := "bridge-cli need to be configured first. Run: "
		errMsg += "bridge-cli config --server http://yourbridgeaddress --secret yoursecret --email you@example.com"
		err = errors.New(errMsg)
		fmt.Println(err.Error())
	}
	return
}

func buildAttachments(paths []string) (attachments []entity.Attachment, err error) {
	for _, path := range paths {
		content, readErr := ioutil.ReadFile(path)
		if readErr != nil {
			err = fmt.Errorf("failed to read attachment %s: %w", path, readErr)
			return
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = entity.DefaultMimeType
		}
		attachments = append(attachments, entity.Attachment{
			Filename: filepath.Base(path),
			Content:  b64.StdEncoding.EncodeToString(content),
			MimeType: mimeType,
		})
	}
	return
}

func checkServerVersion() (err error) {
	header := make(http.Header)
	header.Set("Accept", "application/json")

	result, err := req.Get(serverAddress+"/api/v1/version", header)
	if err != nil {
		log.Println(err)
		return
	}
	versionResponse := entity.VersionResponse{}
	err = result.ToJSON(&versionResponse)
	if err != nil {
		log.Println(err)
		return
	}

	if versionResponse.Version != app.Version {
		log.Println("Target version", versionResponse.Version)
		log.Println("Local version", app.Version)
		err = errors.New("Client version mismatch. Please update your bridge-cli.")
	}
	return
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	usr, err := user.Current()
	if err != nil {
		log.Fatal(err)
	}
	homeDir = usr.HomeDir

	app = cli.NewApp()
	app.Name = "bridge-cli"
	app.Usage = "taskbridge submission client"
	app.Version = version

	app.Commands = []cli.Command{

		{
			Name:  "config",
			Usage: "Configure bridge-cli",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "server",
					Value:       "",
					Destination: &serverAddress,
					Usage:       "taskbridge server address",
				},
				cli.StringFlag{
					Name:        "secret",
					Value:       "",
					Destination: &submissionSecret,
					Usage:       "Submission secret",
				},
				cli.StringFlag{
					Name:        "email",
					Value:       "",
					Destination: &email,
					Usage:       "Submitter email address",
				},
			},
			Action: func(c *cli.Context) (err error) {
				if len(serverAddress) < 1 {
					msg := "Server address should not be empty. Example: "
					msg += "bridge-cli config --server http://localhost:8080 --secret s3cret --email you@example.com"
					err = errors.New(msg)
					return
				}
				if len(submissionSecret) < 1 {
					msg := "Secret should not be empty. Example: "
					msg += "bridge-cli config --server http://localhost:8080 --secret s3cret --email you@example.com"
					err = errors.New(msg)
					return
				}
				_, err = url.ParseRequestURI(serverAddress)
				if err != nil {
					return
				}
				configDir := homeDir + "/.taskbridge"
				err = os.MkdirAll(configDir, 0755)
				if err != nil {
					log.Printf("error: %v\n", err)
					return
				}
				err = ioutil.WriteFile(configDir+"/TASKBRIDGE_SERVER_ADDRESS", []byte(serverAddress), 0644)
				if err != nil {
					log.Printf("error: %v\n", err)
					return
				}
				err = ioutil.WriteFile(configDir+"/TASKBRIDGE_SECRET", []byte(submissionSecret), 0600)
				if err != nil {
					log.Printf("error: %v\n", err)
					return
				}
				err = ioutil.WriteFile(configDir+"/TASKBRIDGE_EMAIL", []byte(email), 0644)
				if err != nil {
					log.Printf("error: %v\n", err)
					return
				}
				fmt.Println("bridge-cli is successfully configured. Happy hacking!")
				return err
			},
		},

		{
			Name:  "submit",
			Usage: "Submit a task round",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "task",
					Value:       "",
					Destination: &task,
					Usage:       "Task name, used as the repository name",
				},
				cli.IntFlag{
					Name:        "round",
					Value:       1,
					Destination: &round,
					Usage:       "Round number",
				},
				cli.StringFlag{
					Name:        "brief",
					Value:       "",
					Destination: &brief,
					Usage:       "Round brief text",
				},
				cli.StringFlag{
					Name:        "eval-url",
					Value:       "",
					Destination: &evaluationURL,
					Usage:       "Evaluation callback URL",
				},
				cli.StringSliceFlag{
					Name:  "file",
					Value: &attachmentPaths,
					Usage: "Attachment file path, repeatable",
				},
				cli.BoolFlag{
					Name:  "yes",
					Usage: "Skip the confirmation prompt",
				},
			},
			Action: func(ctx *cli.Context) (err error) {
				err = checkForInitValues()
				if err != nil {
					return
				}

				if len(task) < 1 {
					err = errors.New("--task should not be empty")
					return
				}
				if round < 1 {
					err = errors.New("--round should be 1 or higher")
					return
				}
				if len(evaluationURL) < 1 {
					err = errors.New("--eval-url should not be empty")
					return
				}
				_, err = url.ParseRequestURI(evaluationURL)
				if err != nil {
					log.Println(err)
					return
				}

				err = checkServerVersion()
				if err != nil {
					return
				}

				attachments, err := buildAttachments(attachmentPaths.Value())
				if err != nil {
					log.Println(err)
					return err
				}

				if !ctx.Bool("yes") {
					label := fmt.Sprintf(
						"Submitting round %d of task %s with %d attachment(s). The repository will be updated in place. Continue?",
						round, task, len(attachments),
					)
					prompt := promptui.Prompt{
						Label:     label,
						IsConfirm: true,
					}
					result, promptErr := prompt.Run()
					if promptErr != nil || strings.ToLower(result) != "y" {
						fmt.Println("Cancelled.")
						return nil
					}
				}

				submission := entity.Submission{
					Email:         email,
					Secret:        submissionSecret,
					Task:          task,
					Round:         round,
					Nonce:         uuid.New().String(),
					Brief:         brief,
					EvaluationURL: evaluationURL,
					Attachments:   attachments,
				}

				header := make(http.Header)
				header.Set("Content-Type", "application/json")
				result, err := req.Post(serverAddress+"/api-endpoint", header, req.BodyJSON(&submission))
				if err != nil {
					log.Println(err)
					return err
				}

				response := entity.SubmitResponse{}
				err = result.ToJSON(&response)
				if err != nil {
					log.Println(err)
					return err
				}
				if len(response.Error) > 0 {
					err = errors.New(response.Error)
					return err
				}

				fmt.Println("Submission accepted.")
				fmt.Println("Repository : " + response.RepoURL)
				fmt.Println("Commit     : " + response.CommitSHA)
				fmt.Println("Pages      : " + response.PagesURL)
				return nil
			},
		},

		{
			Name:  "history",
			Usage: "List recent submissions recorded by the server",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:        "limit",
					Value:       10,
					Destination: &historyLimit,
					Usage:       "Maximum number of records",
				},
			},
			Action: func(ctx *cli.Context) (err error) {
				err = checkForInitValues()
				if err != nil {
					return
				}

				result, err := req.Get(fmt.Sprintf("%s/api/v1/submissions?limit=%d", serverAddress, historyLimit), nil)
				if err != nil {
					log.Println(err)
					return
				}

				var records []struct {
					DeliveryID    string `json:"delivery_id"`
					Task          string `json:"task"`
					Round         int    `json:"round"`
					RepoURL       string `json:"repo_url"`
					CommitSHA     string `json:"commit_sha"`
					DispatchState string `json:"dispatch_state"`
					SubmittedAt   string `json:"submitted_at"`
				}
				err = result.ToJSON(&records)
				if err != nil {
					log.Println(err)
					return
				}

				if len(records) == 0 {
					fmt.Println("No submissions recorded yet.")
					return nil
				}
				for _, record := range records {
					fmt.Printf("%s  %s round %d  [%s]  %s\n",
						record.SubmittedAt, record.Task, record.Round, record.DispatchState, record.RepoURL)
				}
				return nil
			},
		},

		{
			Name:  "update",
			Usage: "Update the bridge-cli tool",
			Action: func(c *cli.Context) (err error) {
				var (
					downloadURL     string
					githubResponse  GithubReleaseResponse
					githubAssetName = "bridge-cli"
					releaseURL      = "https://api.github.com/repos/Ojal2/taskbridge/releases/latest"
				)

				response, err := http.Get(releaseURL)
				if err != nil {
					log.Printf("error: %v\n", err)
					log.Println("Failed to fetch the latest release.")
					return
				}
				defer response.Body.Close()

				body, err := ioutil.ReadAll(response.Body)
				if err != nil {
					log.Printf("error: %v\n", err)
					return
				}

				if err = json.Unmarshal(body, &githubResponse); err != nil {
					log.Printf("error: %v\n", err)
					return err
				}

				for _, asset := range githubResponse.Assets {
					if asset.Name == githubAssetName {
						downloadURL = strings.TrimSuffix(string(asset.BrowserDownloadUrl), "\n")
						break
					}
				}
				if len(downloadURL) < 1 {
					err = errors.New("no " + githubAssetName + " asset in the latest release")
					return
				}

				log.Println(downloadURL)
				log.Println("Self-updating...")

				resp, err := http.Get(downloadURL)
				if err != nil {
					log.Printf("error: %v\n", err)
					return err
				}
				defer resp.Body.Close()

				err = update.Apply(resp.Body, update.Options{})
				if err != nil {
					log.Printf("error: %v\n", err)
					return err
				}

				log.Println("Updated to the latest release.")
				return
			},
		},
	}

	app.Run(os.Args)
}
