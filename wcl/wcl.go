// Package wcl detects WarcraftLogs report links in free text and derives their
// 16-character report ids. It also owns the raid-link pattern the bot posts into
// companion threads and later re-parses when resolving a thread's raid.
package wcl

import (
	"regexp"
	"strconv"
)

var (
	// reportURLPattern matches vanilla/classic WarcraftLogs report links.
	// The report id is exactly 16 alphanumeric characters; the trailing \b
	// rejects longer tokens instead of truncating them.
	reportURLPattern = regexp.MustCompile(`https?://(?:vanilla|classic)\.warcraftlogs\.com/reports/([a-zA-Z0-9]{16})\b`)

	// reportIDPattern extracts the id from an already-canonical report URL.
	reportIDPattern = regexp.MustCompile(`/reports/([a-zA-Z0-9]{16})\b`)

	// raidLinkPattern matches raid links the bot posts into companion threads,
	// e.g. https://templeashkandi.com/raids/123.
	raidLinkPattern = regexp.MustCompile(`/raids/(\d+)`)
)

// ExtractReportURLs returns every report link found in content, canonicalized to
// the vanilla host, in input order. Callers use only the first by policy.
func ExtractReportURLs(content string) []string {
	matches := reportURLPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, "https://vanilla.warcraftlogs.com/reports/"+m[1])
	}
	return urls
}

// ExtractReportID returns the report id embedded in url, or "" when absent.
// An empty result for a URL that looked like a report link is a normal outcome,
// not an error.
func ExtractReportID(url string) string {
	m := reportIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractRaidID returns the raid id from the first raid link in content, or
// (0, false) when none is present.
func ExtractRaidID(content string) (int64, bool) {
	m := raidLinkPattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
