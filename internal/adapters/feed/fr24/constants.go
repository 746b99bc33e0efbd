package fr24

import "time"

const (
	defaultListURL     = "https://data-cloud.flightradar24.com/zones/fcgi/feed.js"
	defaultDetailsURL  = "https://data-live.flightradar24.com/clickhandler/"
	defaultAirportsURL = "https://www.flightradar24.com/_json/airports.php"
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 6.1)"
	defaultHTTPTimeout = 10 * time.Second

	// listMaxAge is the oldest position report, in seconds, the feed returns.
	listMaxAge = 14400
	listLimit  = 5000

	errorBodyLimit = 512
)

// listSources are the feed.js switches enabled on every query.
var listSources = []string{
	"faa", "satellite", "mlat", "flarm", "adsb", "gnd", "air", "vehicles", "estimated", "gliders", "stats",
}
