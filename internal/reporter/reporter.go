// Package reporter keeps the Discord status message of the game server in sync with the observed server state.
//
// A Reporter owns the only mutable StatusData and WebhookMessage of the process.
// Periodic ticks and host events all go through one lock, so a read-modify-send
// cycle never interleaves with another one.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/woozymasta/herald/internal/discord"
	"github.com/woozymasta/herald/internal/logger"
	"github.com/woozymasta/herald/internal/models"
)

// storeTimeout bounds persisting the id of a freshly created message.
const storeTimeout = 5 * time.Second

// Webhook sends the status message to Discord.
type Webhook interface {
	Create(ctx context.Context, webhookURI string, msg *discord.WebhookMessage) (string, error)
	Update(ctx context.Context, webhookURI, messageID string, msg *discord.WebhookMessage) error
}

// MessageStore persists the id of the created message so the next start edits it instead of posting a new one.
type MessageStore interface {
	SaveMessageID(ctx context.Context, webhookURI, messageID, serverName string) error
	TouchMessage(ctx context.Context, webhookURI string, at time.Time) error
}

// Host exposes the live map of the game server.
type Host interface {
	MapName() string
}

// HostHealth reports whether the game server answers queries.
type HostHealth interface {
	Online() bool
}

// IPResolver returns the printable public address of the server and the bare IP.
type IPResolver interface {
	Resolve(ctx context.Context) (string, netip.Addr, error)
}

// CountryLookup maps an address to an ISO country code.
type CountryLookup interface {
	CountryCode(addr netip.Addr) string
}

// Options holds the optional collaborators of a Reporter.
type Options struct {
	Store    MessageStore
	Host     Host
	Health   HostHealth
	Resolver IPResolver
	Geo      CountryLookup
	Now      func() time.Time

	// EventEvery and EventBurst throttle event driven refreshes. Zero EventEvery disables throttling.
	EventEvery time.Duration
	EventBurst int

	// OfflineOnStop sends a last update with the Offline status when the reporter stops.
	OfflineOnStop bool
}

// Reporter is the update loop core: Start it once, feed it host events, Stop it on shutdown.
type Reporter struct {
	client   Webhook
	store    MessageStore
	host     Host
	health   HostHealth
	resolver IPResolver
	geo      CountryLookup
	limiter  *rate.Limiter
	now      func() time.Time
	machine  *fsm.FSM
	message  *discord.WebhookMessage
	cancel   context.CancelFunc
	ctx      context.Context
	log      zerolog.Logger

	lastSuccess time.Time
	lastErr     string
	info        models.StatusMessageInfo
	status      models.StatusData

	wg sync.WaitGroup

	// mu guards status, message, info, machine and the counters, and is held across outbound calls
	mu sync.Mutex

	// lifeMu guards running and the wait group additions
	lifeMu sync.Mutex

	// eventMu guards pending only, host events never wait for r.mu
	eventMu sync.Mutex
	pending hostEvents

	ticks    uint64
	failures uint64

	running       bool
	stopped       bool
	titleFromHost bool
	offlineOnStop bool
}

// hostEvents holds the latest host values not yet folded into StatusData.
type hostEvents struct {
	hostname    string
	mapName     string
	hasHostname bool
	hasMap      bool
}

// New creates a reporter for the message described by info.
func New(info models.StatusMessageInfo, client Webhook, opts Options) *Reporter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	if opts.EventEvery > 0 {
		limit = rate.Every(opts.EventEvery)
	}
	burst := opts.EventBurst
	if burst < 1 {
		burst = 1
	}

	r := &Reporter{
		client:        client,
		store:         opts.Store,
		host:          opts.Host,
		health:        opts.Health,
		resolver:      opts.Resolver,
		geo:           opts.Geo,
		limiter:       rate.NewLimiter(limit, burst),
		now:           now,
		info:          info,
		titleFromHost: info.ServerName == "",
		offlineOnStop: opts.OfflineOnStop,
		log:           logger.Component("reporter"),
		status: models.StatusData{
			IPAddress:    info.IPAddress,
			ServerOnline: true,
			Timestamp:    now(),
		},
	}
	r.machine = newMachine(r.log)

	return r
}

// Start prepares the message and launches the periodic loop.
// The public IP lookup, when needed, runs here so the first message already carries the address.
func (r *Reporter) Start(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	if r.running || r.stopped {
		return errors.New("reporter already started")
	}
	if r.info.MessageInterval <= 0 {
		return fmt.Errorf("invalid message interval %s", r.info.MessageInterval)
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	r.mu.Lock()
	r.resolveAddress(r.ctx)
	r.applyEvents()
	r.refreshStatus()
	r.message = discord.CreateMessage(r.messageInfo(), r.status)
	discord.SetOnline(r.message, r.status.ServerOnline)

	event := eventLoadNew
	if r.info.HasMessage() {
		event = eventLoadExisting
	}
	err := r.machine.Event(r.ctx, event)
	r.mu.Unlock()

	if err != nil {
		r.cancel()
		return err
	}

	r.log.Info().
		Str("state", r.machine.Current()).
		Str("message_id", r.info.MessageID).
		Dur("interval", r.info.MessageInterval).
		Msg("Status reporter started")

	r.running = true
	r.wg.Add(1)
	go r.loop()

	return nil
}

// Stop cancels the loop, waits for in-flight refreshes and optionally marks the message offline.
func (r *Reporter) Stop() {
	r.lifeMu.Lock()
	if !r.running {
		r.lifeMu.Unlock()
		return
	}
	r.running = false
	r.stopped = true
	r.cancel()
	r.lifeMu.Unlock()

	r.wg.Wait()

	if r.offlineOnStop {
		ctx, cancel := context.WithTimeout(context.Background(), discord.DefaultTimeout)
		r.markOffline(ctx)
		cancel()
	}

	r.log.Info().Msg("Status reporter stopped")
}

// Tick runs one refresh cycle: refresh StatusData, then create or update the message depending on the state.
func (r *Reporter) Tick(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ticks++
	r.applyEvents()
	r.refreshStatus()
	r.sync(ctx)
}

// OnHostNameChanged records the new hostname and triggers an out-of-band refresh.
// When no message exists yet the refresh creates it. It returns without waiting for a send in flight.
func (r *Reporter) OnHostNameChanged(name string) {
	r.eventMu.Lock()
	r.pending.hostname = name
	r.pending.hasHostname = true
	r.eventMu.Unlock()

	r.dispatch("hostname")
}

// OnMapStart records the new map and triggers an out-of-band refresh.
func (r *Reporter) OnMapStart(name string) {
	r.eventMu.Lock()
	r.pending.mapName = name
	r.pending.hasMap = true
	r.eventMu.Unlock()

	r.dispatch("map")
}

// Status returns a copy of the current state.
func (r *Reporter) Status() models.ReporterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.ReporterStatus{
		State:       r.machine.Current(),
		MessageID:   r.info.MessageID,
		Status:      r.status,
		Ticks:       r.ticks,
		Failures:    r.failures,
		LastError:   r.lastErr,
		LastSuccess: r.lastSuccess,
	}
}

// Message returns a copy of the cached webhook message.
func (r *Reporter) Message() *discord.WebhookMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.message.Clone()
}

// loop drives the periodic ticks. A message that still has to be created is attempted right away.
func (r *Reporter) loop() {
	defer r.wg.Done()

	if r.state() == StateAwaitingCreate {
		r.Tick(r.ctx)
	}

	ticker := time.NewTicker(r.info.MessageInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.log.Debug().Msg("Updating status message")
			r.Tick(r.ctx)
		}
	}
}

// dispatch runs an event driven refresh in a tracked goroutine, unless throttled or not running.
func (r *Reporter) dispatch(reason string) {
	r.lifeMu.Lock()
	if !r.running {
		r.lifeMu.Unlock()
		r.log.Debug().Str("event", reason).Msg("Reporter not running, event recorded only")
		return
	}

	if !r.limiter.Allow() {
		r.lifeMu.Unlock()
		r.log.Debug().Str("event", reason).Msg("Event refresh throttled, next tick will carry it")
		return
	}

	r.wg.Add(1)
	ctx := r.ctx
	r.lifeMu.Unlock()

	go func() {
		defer r.wg.Done()
		r.log.Debug().Str("event", reason).Msg("Event refresh")
		r.Tick(ctx)
	}()
}

// sync sends the message according to the current state. Caller holds r.mu.
func (r *Reporter) sync(ctx context.Context) {
	switch r.machine.Current() {
	case StateAwaitingCreate:
		r.create(ctx)
	case StatePeriodic:
		r.update(ctx)
	}
}

// create posts a fresh message and persists its id. Caller holds r.mu.
func (r *Reporter) create(ctx context.Context) {
	r.message = discord.CreateMessage(r.messageInfo(), r.status)
	discord.SetOnline(r.message, r.status.ServerOnline)

	id, err := r.client.Create(ctx, r.info.WebhookURI, r.message)
	if err != nil {
		r.fail(err, "Failed to create status message")
		return
	}

	r.info.MessageID = id
	r.succeed()

	// The message exists on Discord now, a shutdown must not lose its id
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if r.store != nil {
		if err := r.store.SaveMessageID(saveCtx, r.info.WebhookURI, id, r.messageInfo().ServerName); err != nil {
			r.log.Error().Err(err).Str("message_id", id).Msg("Failed to persist message id, a restart will post a new message")
		}
	}

	if err := r.machine.Event(saveCtx, eventCreated); err != nil {
		r.log.Error().Err(err).Msg("Unexpected state transition failure")
		return
	}

	r.log.Info().Str("message_id", id).Msg("Status message created")
}

// update edits the existing message in place. Caller holds r.mu.
func (r *Reporter) update(ctx context.Context) {
	discord.SetOnline(r.message, r.status.ServerOnline)
	discord.ApplyUpdate(r.message, r.status)

	err := r.client.Update(ctx, r.info.WebhookURI, r.info.MessageID, r.message)
	if err != nil {
		r.fail(err, "Failed to update status message")

		// Message deleted on Discord side: post a new one on the next cycle
		var se *discord.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			r.info.MessageID = ""
			if err := r.machine.Event(context.WithoutCancel(ctx), eventLost); err == nil {
				r.log.Warn().Msg("Status message is gone, it will be created again")
			}
		}
		return
	}

	r.succeed()
	r.log.Debug().Str("map", r.status.MapName).Msg("Status message updated")

	if r.store != nil {
		if err := r.store.TouchMessage(ctx, r.info.WebhookURI, r.status.Timestamp); err != nil {
			r.log.Debug().Err(err).Msg("Failed to record message update")
		}
	}
}

// markOffline flips the Status field and sends a final update.
func (r *Reporter) markOffline(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Current() != StatePeriodic {
		return
	}

	r.status.ServerOnline = false
	r.status.Timestamp = r.now()
	discord.SetOnline(r.message, false)
	discord.ApplyUpdate(r.message, r.status)

	if err := r.client.Update(ctx, r.info.WebhookURI, r.info.MessageID, r.message); err != nil {
		r.fail(err, "Failed to mark status message offline")
		return
	}

	r.succeed()
	r.log.Info().Msg("Status message marked offline")
}

// applyEvents folds pending host events into StatusData. Caller holds r.mu.
func (r *Reporter) applyEvents() {
	r.eventMu.Lock()
	ev := r.pending
	r.pending = hostEvents{}
	r.eventMu.Unlock()

	if ev.hasHostname {
		r.status.ServerOnline = true
		r.status.ServerName = ev.hostname
		if r.titleFromHost && r.message != nil && len(r.message.Embeds) > 0 {
			r.message.Embeds[0].Title = ev.hostname
		}
	}

	if ev.hasMap {
		r.status.ServerOnline = true
		r.status.MapName = ev.mapName
	}
}

// refreshStatus pulls the live map and health from the host and stamps the snapshot. Caller holds r.mu.
func (r *Reporter) refreshStatus() {
	if r.host != nil {
		if name := r.host.MapName(); name != "" {
			r.status.MapName = name
		}
	}
	if r.health != nil {
		r.status.ServerOnline = r.health.Online()
	}
	r.status.Timestamp = r.now()
}

// resolveAddress fills the public address when it was not configured. Caller holds r.mu.
func (r *Reporter) resolveAddress(ctx context.Context) {
	if r.info.IPAddress != "" || r.resolver == nil {
		return
	}

	address, addr, err := r.resolver.Resolve(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to resolve public IP address")
	}
	r.info.IPAddress = address
	r.status.IPAddress = address

	if r.geo != nil && addr.IsValid() {
		r.info.CountryCode = r.geo.CountryCode(addr)
	}

	r.log.Info().Str("ip", address).Str("country", r.info.CountryCode).Msg("Public address resolved")
}

// messageInfo returns info with the hostname as title fallback. Caller holds r.mu.
func (r *Reporter) messageInfo() models.StatusMessageInfo {
	info := r.info
	if r.titleFromHost {
		info.ServerName = r.status.ServerName
	}

	return info
}

func (r *Reporter) state() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.machine.Current()
}

// fail logs a failed attempt; errors never leave the reporter. Caller holds r.mu.
func (r *Reporter) fail(err error, msg string) {
	r.failures++
	r.lastErr = err.Error()

	var se *discord.StatusError
	if errors.As(err, &se) {
		r.log.Error().Int("status", se.Code).Str("body", se.Body).Msg(msg)
		return
	}

	r.log.Error().Err(err).Msg(msg)
}

// succeed records a successful Discord call. Caller holds r.mu.
func (r *Reporter) succeed() {
	r.lastErr = ""
	r.lastSuccess = r.now()
}
