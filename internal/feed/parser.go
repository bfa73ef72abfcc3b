package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/event-catalog/backend/internal/storage/models"
)

// sellModeOffline marks a base event group as unavailable for sale.
// None of its child events are ingested.
const sellModeOffline = "offline"

// ParseStats counts what happened to the records of one feed payload.
type ParseStats struct {
	BaseEvents     int
	SkippedOffline int
	Malformed      int
	Duplicates     int
}

// Parser turns raw feed bytes into candidate event records.
//
// The feed is XML: base_event elements (attrs title, base_event_id,
// sell_mode) containing event elements (attrs event_id,
// event_start_date, event_end_date) containing zone elements (attr
// price). Malformed records are skipped individually; a bad event never
// aborts the whole parse.
type Parser struct{}

// NewParser creates a new feed parser.
func NewParser() *Parser {
	return &Parser{}
}

type baseEventXML struct {
	BaseEventID string     `xml:"base_event_id,attr"`
	SellMode    string     `xml:"sell_mode,attr"`
	Title       string     `xml:"title,attr"`
	Events      []eventXML `xml:"event"`
}

type eventXML struct {
	EventID   string    `xml:"event_id,attr"`
	StartDate string    `xml:"event_start_date,attr"`
	EndDate   string    `xml:"event_end_date,attr"`
	Zones     []zoneXML `xml:"zone"`
}

type zoneXML struct {
	Price string `xml:"price,attr"`
}

// Parse decodes a feed payload into a map keyed by composite key
// "{baseEventID}_{eventID}".
func (p *Parser) Parse(data []byte) (map[string]models.FeedEvent, ParseStats, error) {
	candidates := make(map[string]models.FeedEvent)
	var stats ParseStats

	// Walk tokens rather than decoding a fixed document shape so
	// base_event elements are found regardless of nesting depth.
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("decoding feed: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "base_event" {
			continue
		}

		var base baseEventXML
		if err := decoder.DecodeElement(&base, &start); err != nil {
			return nil, stats, fmt.Errorf("decoding base_event: %w", err)
		}

		stats.BaseEvents++
		p.collectBaseEvent(base, candidates, &stats)
	}

	return candidates, stats, nil
}

// collectBaseEvent emits candidates for one base_event group.
func (p *Parser) collectBaseEvent(base baseEventXML, candidates map[string]models.FeedEvent, stats *ParseStats) {
	if base.SellMode == sellModeOffline {
		log.Printf("Skipping base event %q (sell mode offline)", base.Title)
		stats.SkippedOffline++
		return
	}

	baseEventID, err := strconv.Atoi(base.BaseEventID)
	if err != nil {
		log.Printf("Skipping base event %q: invalid base_event_id %q", base.Title, base.BaseEventID)
		stats.Malformed += len(base.Events)
		return
	}

	for _, ev := range base.Events {
		candidate, err := p.buildCandidate(baseEventID, base.Title, ev)
		if err != nil {
			log.Printf("Skipping event %s/%s: %v", base.BaseEventID, ev.EventID, err)
			stats.Malformed++
			continue
		}

		key := candidate.Key().String()
		if _, exists := candidates[key]; exists {
			// Occurrence identifiers should be unique per base event in
			// the source format; detect and log if the payload violates
			// that, keeping the last record seen.
			log.Printf("Duplicate composite key %s in feed payload, overwriting", key)
			stats.Duplicates++
		}
		candidates[key] = candidate
	}
}

// buildCandidate validates a single event occurrence and derives its
// price bounds from the zone entries.
func (p *Parser) buildCandidate(baseEventID int, title string, ev eventXML) (models.FeedEvent, error) {
	eventID, err := strconv.Atoi(ev.EventID)
	if err != nil {
		return models.FeedEvent{}, fmt.Errorf("invalid event_id %q", ev.EventID)
	}

	startsAt, err := parseTimestamp(ev.StartDate)
	if err != nil {
		return models.FeedEvent{}, fmt.Errorf("invalid event_start_date %q", ev.StartDate)
	}

	endsAt, err := parseTimestamp(ev.EndDate)
	if err != nil {
		return models.FeedEvent{}, fmt.Errorf("invalid event_end_date %q", ev.EndDate)
	}

	if len(ev.Zones) == 0 {
		return models.FeedEvent{}, fmt.Errorf("no price zones")
	}

	minPrice, maxPrice, err := priceBounds(ev.Zones)
	if err != nil {
		return models.FeedEvent{}, err
	}

	return models.FeedEvent{
		BaseEventID: baseEventID,
		EventID:     eventID,
		Title:       title,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
	}, nil
}

// priceBounds returns the minimum and maximum zone price.
func priceBounds(zones []zoneXML) (float64, float64, error) {
	var minPrice, maxPrice float64
	for i, z := range zones {
		price, err := strconv.ParseFloat(z.Price, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid zone price %q", z.Price)
		}
		if i == 0 || price < minPrice {
			minPrice = price
		}
		if i == 0 || price > maxPrice {
			maxPrice = price
		}
	}
	return minPrice, maxPrice, nil
}

// timestampLayouts are the ISO-8601 shapes the provider has been seen
// to emit. The feed normally carries naive local timestamps.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// parseTimestamp parses an ISO-8601 feed timestamp, normalized to UTC.
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
