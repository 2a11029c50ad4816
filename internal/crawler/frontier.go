package crawler

// Frontier manages BFS traversal state for a single crawl run: a FIFO queue
// of candidate URLs and the visited set. Not safe for concurrent use; each
// run owns exactly one Frontier.
type Frontier struct {
	queue   []string
	visited map[string]struct{}
}

func NewFrontier(seeds []string) *Frontier {
	f := &Frontier{
		queue:   make([]string, 0, len(seeds)),
		visited: make(map[string]struct{}),
	}
	f.queue = append(f.queue, seeds...)
	return f
}

// Next pops the first not-yet-visited URL from the queue and marks it
// visited. Returns false when the queue is exhausted.
func (f *Frontier) Next() (string, bool) {
	for len(f.queue) > 0 {
		url := f.queue[0]
		f.queue = f.queue[1:]
		if _, seen := f.visited[url]; seen {
			continue
		}
		f.visited[url] = struct{}{}
		return url, true
	}
	return "", false
}

// Push appends a discovered URL to the back of the queue. Already-visited
// URLs are dropped silently. Appending to the back keeps traversal pure BFS.
func (f *Frontier) Push(url string) {
	if url == "" {
		return
	}
	if _, seen := f.visited[url]; seen {
		return
	}
	f.queue = append(f.queue, url)
}

// Visited reports whether a URL has already been dequeued this run.
func (f *Frontier) Visited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

// Pending returns the current queue length, counting possible duplicates of
// visited entries that have not been filtered out yet.
func (f *Frontier) Pending() int {
	return len(f.queue)
}
