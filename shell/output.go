package shell

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/abiosoft/ishell"

	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/session"
)

// notifier turns session snapshots into console lines. Listeners run on
// classification goroutines, so last is guarded.
type notifier struct {
	mu   sync.Mutex
	last session.Snapshot
}

func (n *notifier) changes(snap session.Snapshot) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var lines []string
	if snap.Status != n.last.Status {
		lines = append(lines, snap.Status)
	}
	if snap.Label != n.last.Label && snap.Label != "" {
		lines = append(lines, fmt.Sprintf("label: %s", snap.Label))
	}
	n.last = snap
	return lines
}

func (n *notifier) status() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last.Status
}

func formatLabel(l inference.Label) string {
	if l == inference.Empty {
		return "(none)"
	}
	return string(l)
}

func displayJSON(c *ishell.Context, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	c.Println(string(output))
	return nil
}
