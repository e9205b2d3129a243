package dubbing

import (
	"context"
	"path/filepath"

	"dengbej/internal/jobs"
)

// jobLookup is implemented by recorders that can answer whether an ID was
// already used; the sqlite ledger does.
type jobLookup interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// claimID reserves id as the file namespace of one request. Generated IDs
// are always free. A client-supplied ID is refused while another request
// holds it, when files named after it exist, or when the ledger knows it.
func (c *Controller) claimID(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = NewRequestID()
		c.mu.Lock()
		c.inflight[id] = struct{}{}
		c.mu.Unlock()
		return id, nil
	}
	if !ValidRequestID(id) {
		return "", inputError("Request ID must be a UUID")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy || c.namespaceUsed(id) || c.ledgerKnows(ctx, id) {
		return "", inputError("Request ID already used")
	}
	c.inflight[id] = struct{}{}
	return id, nil
}

func (c *Controller) releaseID(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

func (c *Controller) namespaceUsed(id string) bool {
	for _, dir := range []string{c.cfg.ScratchDir, c.cfg.OutputDir} {
		if matches, _ := filepath.Glob(filepath.Join(dir, id+"-*")); len(matches) > 0 {
			return true
		}
	}
	return false
}

func (c *Controller) ledgerKnows(ctx context.Context, id string) bool {
	lookup, ok := c.recorder.(jobLookup)
	if !ok {
		return false
	}
	job, err := lookup.Get(ctx, id)
	return err == nil && job != nil
}
