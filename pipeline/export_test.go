package pipeline

// Sync waits until every event queued so far has been handled.
func (o *Orchestrator) Sync() { o.sync() }
