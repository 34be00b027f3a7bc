package overlay

import "sync"

// Node ids used by the controller's element tree.
const (
	NodeRoot           = "daybar-root"
	NodeBar            = "daybar-bar"
	NodeBarFill        = "daybar-bar-fill"
	NodeBarLabel       = "daybar-bar-label"
	NodeRangeLabel     = "daybar-range-label"
	NodeCountdownBar   = "daybar-countdown-bar"
	NodeCountdownFill  = "daybar-countdown-fill"
	NodeCountdownLabel = "daybar-countdown-label"
	NodeSettingsButton = "daybar-settings-button"
	NodeSettingsPanel  = "daybar-settings-panel"
	NodeCountdownButton = "daybar-countdown-button"
	NodeCountdownPanel  = "daybar-countdown-panel"
	NodeHideButton     = "daybar-hide-button"
)

// Node is one element of the overlay tree the controller renders into.
type Node struct {
	ID       string
	Kind     string
	Text     string
	Width    float64 // fill percent, 0..100
	Hidden   bool
	Children []*Node
}

// Find returns the descendant with the given id, or nil.
func (n *Node) Find(id string) *Node {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Surface is the host document the overlay mounts into. The host owns it and
// may detach attached subtrees at any time; it may also not be ready yet when
// the controller first runs.
type Surface interface {
	Ready() bool
	Root(id string) *Node
	Attach(root *Node)
	Detach(id string)
}

// MemorySurface is an in-process Surface. The TUI host and tests drive it.
type MemorySurface struct {
	mu    sync.Mutex
	ready bool
	roots map[string]*Node
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{ready: true, roots: make(map[string]*Node)}
}

// SetReady flips document readiness; a surface that is not ready rejects
// lookups and attachments.
func (s *MemorySurface) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

func (s *MemorySurface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *MemorySurface) Root(id string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	return s.roots[id]
}

func (s *MemorySurface) Attach(root *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || root == nil {
		return
	}
	s.roots[root.ID] = root
}

func (s *MemorySurface) Detach(id string) {
	s.mu.Lock()
	delete(s.roots, id)
	s.mu.Unlock()
}

// Wipe simulates a host page clearing every injected element.
func (s *MemorySurface) Wipe() {
	s.mu.Lock()
	s.roots = make(map[string]*Node)
	s.mu.Unlock()
}
