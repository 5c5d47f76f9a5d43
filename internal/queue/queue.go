package queue

// State is the frontier of a single breadth-first crawl. It is owned by one
// crawl call and is not safe for concurrent use.
type State struct {
	frontier   []string
	visited    map[string]bool
	discovered map[string]bool
	order      []string
}

// New creates a State seeded with the given URL
func New(seed string) *State {
	s := &State{
		visited:    make(map[string]bool),
		discovered: make(map[string]bool),
	}
	s.Discover(seed)
	return s
}

// Discover records url and appends it to the frontier. It returns false
// if url was already discovered, in which case nothing changes.
func (s *State) Discover(url string) bool {
	if s.discovered[url] {
		return false
	}
	s.discovered[url] = true
	s.order = append(s.order, url)
	s.frontier = append(s.frontier, url)
	return true
}

// Next removes and returns the head of the frontier
func (s *State) Next() (string, bool) {
	if len(s.frontier) == 0 {
		return "", false
	}
	url := s.frontier[0]
	s.frontier = s.frontier[1:]
	return url, true
}

// MarkVisited records that url has been loaded
func (s *State) MarkVisited(url string) {
	s.visited[url] = true
}

// IsVisited checks if a URL has been visited
func (s *State) IsVisited(url string) bool {
	return s.visited[url]
}

// IsDiscovered checks if a URL has been seen
func (s *State) IsDiscovered(url string) bool {
	return s.discovered[url]
}

// Len returns the current length of the frontier
func (s *State) Len() int {
	return len(s.frontier)
}

// VisitedCount returns the number of visited URLs
func (s *State) VisitedCount() int {
	return len(s.visited)
}

// Discovered returns every discovered URL in discovery order
func (s *State) Discovered() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
