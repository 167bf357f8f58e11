package actions

import (
	"context"
	"encoding/json"
)

// writeChanges flushes the last-known store to disk. Bulk actions append it
// as their final phase so change-detection state lands atomically once the
// work is done.
type writeChanges struct {
	env *Env
}

func newWriteChanges(env *Env) *writeChanges {
	return &writeChanges{env: env}
}

func (a *writeChanges) Type() string     { return TypeWriteChanges }
func (a *writeChanges) Awaiting() string { return "" }

func (a *writeChanges) Run(context.Context, json.RawMessage) (bool, error) {
	if err := a.env.LastKnown.WriteChanges(); err != nil {
		return false, err
	}
	return true, nil
}
