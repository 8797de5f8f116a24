package reminders

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// Client talks to a CalDAV server holding the user-visible reminder events.
// Object references handed back to callers are CalDAV object paths; a PUT at
// a known path is the protocol-level upsert.
type Client struct {
	dav      *caldav.Client
	http     *http.Client
	endpoint *url.URL
	username string
	password string
	homeSet  string
}

// NewClient connects to the CalDAV server and resolves the calendar home set.
func NewClient(ctx context.Context, serverURL, username, password string) (*Client, error) {
	endpoint, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV URL: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	dav, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, username, password), serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	principal, err := dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find CalDAV principal: %w", err)
	}

	homeSet, err := dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	return &Client{
		dav:      dav,
		http:     httpClient,
		endpoint: endpoint,
		username: username,
		password: password,
		homeSet:  homeSet,
	}, nil
}

// EnsureList returns the path of the calendar with the given display name,
// creating it when absent.
func (c *Client) EnsureList(ctx context.Context, name string) (string, error) {
	calendars, err := c.dav.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to list calendars: %w", err)
	}

	for _, calendar := range calendars {
		if calendar.Name == name {
			return calendar.Path, nil
		}
	}

	path := c.homeSet + slugify(name) + "/"
	if err := c.mkcalendar(ctx, path, name); err != nil {
		return "", fmt.Errorf("failed to create calendar %q: %w", name, err)
	}

	slog.Info("Created calendar", "name", name, "path", path)

	return path, nil
}

// Create puts a new event and returns its object path as the opaque
// reference. Companion events for leads beyond the per-event alarm limit are
// created at paths derived from the main reference.
func (c *Client) Create(ctx context.Context, listPath string, reminder Reminder) (string, error) {
	uid := uuid.New().String()
	ref := listPath + uid + ".ics"

	if err := c.put(ctx, ref, uid, reminder); err != nil {
		return "", err
	}

	return ref, nil
}

// Update replaces the event at ref with the reminder's full desired state.
// The object path, and therefore the reference, is unchanged.
func (c *Client) Update(ctx context.Context, listPath string, ref string, reminder Reminder) error {
	uid := uidFromRef(ref)
	if uid == "" {
		return fmt.Errorf("malformed reminder reference %q", ref)
	}

	// Companion set may shrink when alarms have passed; clear before rewriting.
	c.deleteCompanions(ctx, ref)

	return c.put(ctx, ref, uid, reminder)
}

// Delete removes the event and its companions. Callers treat failures as
// best-effort; the local lifecycle state is authoritative.
func (c *Client) Delete(ctx context.Context, listPath string, ref string) error {
	c.deleteCompanions(ctx, ref)

	if err := c.dav.RemoveAll(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", ref, err)
	}

	return nil
}

// FindByFingerprint searches a calendar's event descriptions for the
// fingerprint substring and returns the matching object paths. Companion
// events never carry the fingerprint, so only main events match.
func (c *Client) FindByFingerprint(ctx context.Context, listPath string, fingerprint string) ([]string, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{Name: "VEVENT", AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT"}},
		},
	}

	objects, err := c.dav.QueryCalendar(ctx, listPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar %s: %w", listPath, err)
	}

	var refs []string
	for _, object := range objects {
		if object.Data == nil {
			continue
		}
		if strings.Contains(eventDescription(object.Data), fingerprint) {
			refs = append(refs, object.Path)
		}
	}

	return refs, nil
}

// put writes the main event plus companion events for the early leads.
func (c *Client) put(ctx context.Context, ref, uid string, reminder Reminder) error {
	mainAlarms, companions := splitAlarms(reminder.Alarms)

	instants := make([]time.Time, 0, len(mainAlarms))
	for _, alarm := range mainAlarms {
		instants = append(instants, alarm.At)
	}

	event := buildEvent(uid, reminder.Title, reminder.Notes, reminder.DueAt, instants)
	if _, err := c.dav.PutCalendarObject(ctx, ref, event); err != nil {
		return fmt.Errorf("failed to put event %s: %w", ref, err)
	}

	for _, alarm := range companions {
		companionRef := companionPath(ref, alarm.LeadHours)
		companionUID := uidFromRef(companionRef)
		title := fmt.Sprintf("%s [%dh]", reminder.Title, alarm.LeadHours)

		companion := buildEvent(companionUID, title, reminder.Title, alarm.At, []time.Time{alarm.At})
		if _, err := c.dav.PutCalendarObject(ctx, companionRef, companion); err != nil {
			return fmt.Errorf("failed to put companion event %s: %w", companionRef, err)
		}
	}

	return nil
}

// splitAlarms keeps the closest leads on the main event and returns the rest
// as companion alarms.
func splitAlarms(alarms []Alarm) (main []Alarm, companions []Alarm) {
	if len(alarms) <= maxEventAlarms {
		return alarms, nil
	}
	cut := len(alarms) - maxEventAlarms
	return alarms[cut:], alarms[:cut]
}

func companionPath(ref string, leadHours int) string {
	return fmt.Sprintf("%s-%dh.ics", strings.TrimSuffix(ref, ".ics"), leadHours)
}

// deleteCompanions removes any companion events derived from ref. Missing
// objects are expected: companions exist only for leads that were still
// upcoming at write time.
func (c *Client) deleteCompanions(ctx context.Context, ref string) {
	for _, leadHours := range DefaultLeadHours {
		companionRef := companionPath(ref, leadHours)
		if err := c.dav.RemoveAll(ctx, companionRef); err != nil {
			slog.Debug("Companion event not removed", "ref", companionRef, "error", err)
		}
	}
}

func uidFromRef(ref string) string {
	base := ref[strings.LastIndex(ref, "/")+1:]
	return strings.TrimSuffix(base, ".ics")
}

// mkcalendar issues a raw MKCALENDAR request. go-webdav does not expose
// calendar creation, so the request is built by hand against the same server.
func (c *Client) mkcalendar(ctx context.Context, path, name string) error {
	var escaped strings.Builder
	if err := xml.EscapeText(&escaped, []byte(name)); err != nil {
		return fmt.Errorf("failed to escape calendar name: %w", err)
	}

	body := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<C:mkcalendar xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:set>
    <D:prop>
      <D:displayname>%s</D:displayname>
      <C:supported-calendar-component-set>
        <C:comp name="VEVENT"/>
      </C:supported-calendar-component-set>
    </D:prop>
  </D:set>
</C:mkcalendar>`, escaped.String())

	target := c.endpoint.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, "MKCALENDAR", target.String(), strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build MKCALENDAR request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("MKCALENDAR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("MKCALENDAR returned %s", resp.Status)
	}

	return nil
}
