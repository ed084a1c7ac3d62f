package postgresql

// migrations returns the schema migrations for the PostgreSQL store, keyed
// by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				owner TEXT NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE IF NOT EXISTS leads (
				id TEXT PRIMARY KEY,
				owner TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				company TEXT NOT NULL DEFAULT '',
				title TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				linkedin_url TEXT NOT NULL DEFAULT '',
				attributes JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE IF NOT EXISTS workflow_runs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id),
				lead_id TEXT NOT NULL REFERENCES leads(id),
				current_node_id TEXT,
				status TEXT NOT NULL,
				waiting_until TIMESTAMP WITH TIME ZONE,
				waiting_for_event TEXT,
				context JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_runs_due
				ON workflow_runs (status, waiting_until);
			CREATE INDEX IF NOT EXISTS idx_workflow_runs_workflow
				ON workflow_runs (workflow_id);

			CREATE TABLE IF NOT EXISTS run_event_log (
				id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL REFERENCES workflow_runs(id),
				node_id TEXT NOT NULL,
				node_type TEXT NOT NULL,
				action TEXT NOT NULL,
				outcome TEXT NOT NULL,
				detail JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_run_event_log_run
				ON run_event_log (run_id, created_at);
		`,
	}
}
