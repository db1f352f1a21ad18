// Package marketdata aggregates the site's market-data endpoints into the
// payloads the content pipeline renders and captions. Every fetch is
// optional: a failed slice logs a warning and the payload builders substitute
// literal defaults, so rendering is always possible with zero live data.
package marketdata
