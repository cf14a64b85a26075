package storage

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    delivery_id TEXT UNIQUE NOT NULL,
    email TEXT NOT NULL,
    task TEXT NOT NULL,
    round INTEGER NOT NULL,
    nonce TEXT NOT NULL,
    repo_url TEXT DEFAULT '',
    commit_sha TEXT DEFAULT '',
    pages_url TEXT DEFAULT '',
    dispatch_state TEXT NOT NULL DEFAULT 'PENDING',
    submitted_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_delivery_id ON submissions(delivery_id);
CREATE INDEX IF NOT EXISTS idx_submissions_task ON submissions(task);
`
