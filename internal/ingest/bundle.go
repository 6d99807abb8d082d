package ingest

import (
	"path/filepath"
	"strings"
)

// Dump role suffixes. A submission arrives as three recognition dumps
// sharing a prefix: order-17.invoice.json, order-17.po.json,
// order-17.pod.json.
const (
	RoleInvoice         = "invoice"
	RolePurchaseOrder   = "po"
	RoleProofOfDelivery = "pod"
)

// Bundle is a completed three-document submission discovered on disk.
type Bundle struct {
	Prefix      string
	InvoicePath string
	POPath      string
	PODPath     string
}

// Collector groups dump paths by prefix and reports when a prefix has
// all three roles. Not safe for concurrent use; feed it from a single
// watcher loop.
type Collector struct {
	partial map[string]map[string]string // prefix -> role -> path
}

func NewCollector() *Collector {
	return &Collector{partial: make(map[string]map[string]string)}
}

// Add registers a discovered dump. When the path completes a triple the
// bundle is returned and its state dropped, so re-writing one file of an
// already-emitted bundle starts a fresh collection.
func (c *Collector) Add(path string) (Bundle, bool) {
	prefix, role, ok := splitDumpName(path)
	if !ok {
		return Bundle{}, false
	}

	roles := c.partial[prefix]
	if roles == nil {
		roles = make(map[string]string, 3)
		c.partial[prefix] = roles
	}
	roles[role] = path

	if len(roles) < 3 {
		return Bundle{}, false
	}
	b := Bundle{
		Prefix:      prefix,
		InvoicePath: roles[RoleInvoice],
		POPath:      roles[RolePurchaseOrder],
		PODPath:     roles[RoleProofOfDelivery],
	}
	delete(c.partial, prefix)
	return b, true
}

// Pending returns how many prefixes are still waiting for documents.
func (c *Collector) Pending() int { return len(c.partial) }

// splitDumpName decomposes "dir/order-17.invoice.json" into prefix
// "dir/order-17" and role "invoice". Files that do not follow the
// convention are ignored.
func splitDumpName(path string) (prefix, role string, ok bool) {
	if !isDump(path) {
		return "", "", false
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	dot := strings.LastIndex(stem, ".")
	if dot <= 0 || dot == len(stem)-1 {
		return "", "", false
	}
	prefix, role = stem[:dot], strings.ToLower(stem[dot+1:])
	switch role {
	case RoleInvoice, RolePurchaseOrder, RoleProofOfDelivery:
		return prefix, role, true
	default:
		return "", "", false
	}
}
