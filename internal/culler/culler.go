package culler

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/model"
)

// Status represents what is known about a favorite's game.
type Status int

const (
	Healthy     Status = iota // listed in the catalog / store page loads
	Missing                   // not in the loaded catalog
	Dead                      // 404, 410 or redirected away from the app page
	Unreachable               // timeout, DNS failure, connection refused, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Missing:
		return "missing"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Result holds the check result for a single favorite.
type Result struct {
	Favorite   model.Favorite
	Status     Status
	StatusCode int    // HTTP status code (0 if connection failed or not checked)
	Error      string // Error message for unreachable pages
}

// ProgressFunc is called after each store page is checked.
// completed is the number of pages checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// FindMissing reports every favorite whose game is not in idx.
func FindMissing(favs []model.Favorite, idx catalog.Index) []Result {
	var results []Result
	for _, f := range favs {
		if _, ok := idx[f.GameID]; !ok {
			results = append(results, Result{Favorite: f, Status: Missing})
		}
	}
	return results
}

// Options configures CheckStorePages.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	// StoreURL builds the page to check; catalog.StoreURL when nil.
	StoreURL func(gameID string) string
}

// CheckStorePages requests the store page of every favorite concurrently.
// A page that ends up anywhere but the game's own "/app/<id>" page counts
// as dead, since delisted games redirect to the store front.
func CheckStorePages(ctx context.Context, favs []model.Favorite, opts Options, onProgress ProgressFunc) []Result {
	if len(favs) == 0 {
		return nil
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.StoreURL == nil {
		opts.StoreURL = catalog.StoreURL
	}

	// Suppress noisy HTTP client logging (protocol errors, unsolicited responses, etc.)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	results := make([]Result, len(favs))
	jobs := make(chan int, len(favs))
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	client := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow redirects but limit to 10
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = checkPage(ctx, client, favs[idx], opts.StoreURL(favs[idx].GameID))

				if onProgress != nil {
					progressMu.Lock()
					completed++
					onProgress(completed, len(favs))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range favs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// checkPage checks a single store page and returns the result.
func checkPage(ctx context.Context, client *http.Client, fav model.Favorite, pageURL string) Result {
	result := Result{Favorite: fav}

	resp, err := do(ctx, client, http.MethodHead, pageURL)
	if err != nil {
		// HEAD failed, try GET as fallback (some servers don't support HEAD)
		resp, err = do(ctx, client, http.MethodGet, pageURL)
		if err != nil {
			result.Status = Unreachable
			result.Error = normalizeError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		if id, ok := catalog.GameIDFromURL(resp.Request.URL.String()); !ok || id != fav.GameID {
			result.Status = Dead
			result.Error = "Redirected away from store page"
			return result
		}
		result.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Status = Dead
	default:
		// Other errors (500, 403, etc.) could be temporary
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func do(ctx context.Context, client *http.Client, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "context canceled"):
		return "Canceled"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
