package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoData is returned at submission time when no row in the requested
// window carries a resolvable website URL. No job row is created.
var ErrNoData = errors.New("nothing to export")

// CrawlError is a per-URL provider failure. It never aborts the batch; the
// affected row gets placeholder output and the rest of the batch continues.
type CrawlError struct {
	URL     string
	Message string
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %s", e.URL, e.Message)
}

// GenError is a per-(url, template) text-generation failure.
type GenError struct {
	Template string
	Message  string
}

func (e *GenError) Error() string {
	return fmt.Sprintf("generate %s: %s", e.Template, e.Message)
}

var retryAfterRe = regexp.MustCompile(`retry after (\d+)s`)

// RetryAfter extracts the provider's advertised wait from a rate-limit
// rejection message ("Rate limit exceeded ... retry after 12s"). The returned
// duration includes the +1s safety margin the caller must honor before the
// single re-queue attempt.
func RetryAfter(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	msg := err.Error()
	if !strings.Contains(msg, "Rate limit exceeded") {
		return 0, false
	}
	m := retryAfterRe.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	secs, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return time.Duration(secs+1) * time.Second, true
}
