package notify

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/errors"
	"github.com/nahidhasan98/review-relay/internal/format"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/nahidhasan98/review-relay/internal/validation"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// WhatsAppMessageLimit keeps review messages readable on phones
const WhatsAppMessageLimit = 4096

// backoff is the reconnection schedule
type backoff struct {
	maxRetries int
	initial    time.Duration
	max        time.Duration
	multiplier float64
}

func (b backoff) next(interval time.Duration) time.Duration {
	interval = time.Duration(float64(interval) * b.multiplier)
	if interval > b.max {
		return b.max
	}
	return interval
}

var defaultBackoff = backoff{
	maxRetries: 10,
	initial:    5 * time.Second,
	max:        5 * time.Minute,
	multiplier: 1.5,
}

// WhatsAppNotifier delivers messages from a linked WhatsApp device
type WhatsAppNotifier struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	validator *validation.Validator
	log       *logger.Logger

	mu              sync.RWMutex
	connected       bool
	cancelReconnect context.CancelFunc
	backoff         backoff
}

// NewWhatsAppNotifier opens the session store and prepares the client.
// Call Start to connect or to begin QR login.
func NewWhatsAppNotifier(ctx context.Context, cfg config.WhatsAppConfig, log *logger.Logger) (*WhatsAppNotifier, error) {
	container, err := sqlstore.New(ctx, cfg.DBDriver, cfg.DBDSN, waLog.Zerolog(log.Component("whatsmeow-db", cfg.LogLevel)))
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	// Name shown under WhatsApp > Linked Devices
	deviceName := cfg.DeviceName
	if deviceName == "" {
		deviceName = "macOS"
	}
	store.SetOSInfo(deviceName, [3]uint32{0, 1, 0})
	device.Platform = deviceName

	n := &WhatsAppNotifier{
		client:    whatsmeow.NewClient(device, waLog.Zerolog(log.Component("whatsmeow", cfg.LogLevel))),
		container: container,
		validator: validation.New(),
		log:       log,
		backoff:   defaultBackoff,
	}
	n.client.AddEventHandler(n.handleEvent)

	return n, nil
}

// Start connects with the stored session, or starts QR login in the
// background when the device is not linked yet.
func (n *WhatsAppNotifier) Start(ctx context.Context) error {
	if n.client.Store.ID == nil {
		n.log.Info("No WhatsApp session found, starting QR login...")
		go n.login(ctx)
		return nil
	}

	n.log.Info("Existing WhatsApp session found. Connecting...")
	if err := n.client.Connect(); err != nil {
		return errors.ConnectionFailed(err)
	}
	return nil
}

// Stop disconnects and cancels any reconnection in progress
func (n *WhatsAppNotifier) Stop() {
	n.mu.Lock()
	if n.cancelReconnect != nil {
		n.cancelReconnect()
		n.cancelReconnect = nil
	}
	n.connected = false
	n.mu.Unlock()

	n.client.Disconnect()
	n.log.Info("Disconnected from WhatsApp")
}

// Send implements Notifier
func (n *WhatsAppNotifier) Send(ctx context.Context, chatID int64, text string) error {
	if !n.Connected() {
		return errors.ClientNotConnected()
	}

	to, appErr := n.validator.ChatJID(chatID)
	if appErr != nil {
		return appErr
	}
	jid, err := types.ParseJID(to)
	if err != nil {
		return errors.InvalidJID(to)
	}

	for _, part := range SplitMessage(n.validator.SanitizeMessage(text), WhatsAppMessageLimit) {
		msg := &waE2E.Message{Conversation: proto.String(part)}
		if _, err := n.client.SendMessage(ctx, jid, msg); err != nil {
			return errors.MessageSendFailed(err)
		}
	}

	n.log.Infof("Message sent to %s", to)
	return nil
}

// Formatter implements Notifier
func (n *WhatsAppNotifier) Formatter() format.Formatter {
	return format.WhatsAppFormatter{}
}

// Name implements Notifier
func (n *WhatsAppNotifier) Name() string {
	return config.NotifierWhatsApp
}

// Connected implements Notifier
func (n *WhatsAppNotifier) Connected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected && n.client.IsConnected() && n.client.Store.ID != nil
}

// Groups lists the groups the linked device belongs to, with the chat id
// to register for each.
func (n *WhatsAppNotifier) Groups(ctx context.Context) ([]models.GroupInfo, error) {
	if !n.Connected() {
		return nil, errors.ClientNotConnected()
	}

	joined, err := n.client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get joined groups: %w", err)
	}

	groups := make([]models.GroupInfo, 0, len(joined))
	for _, g := range joined {
		chatID, ok := n.validator.GroupChatID(g.JID.String())
		if !ok {
			n.log.Debugf("Skipping group %s, its id does not fit a chat id", g.JID)
			continue
		}
		groups = append(groups, models.GroupInfo{
			JID:       g.JID.String(),
			ChatID:    chatID,
			Name:      g.Name,
			Topic:     g.Topic,
			CreatedAt: g.GroupCreated.Unix(),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

func (n *WhatsAppNotifier) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		n.mu.Lock()
		n.connected = true
		if n.cancelReconnect != nil {
			n.cancelReconnect()
			n.cancelReconnect = nil
		}
		n.mu.Unlock()
		n.log.Info("WhatsApp client connected")
		if n.client.Store.ID != nil {
			n.log.Infof("Device ID: %s", n.client.Store.ID.String())
		}

	case *events.Disconnected:
		n.mu.Lock()
		n.connected = false
		reconnecting := n.cancelReconnect != nil
		n.mu.Unlock()

		n.log.Warn("WhatsApp client disconnected")
		if !reconnecting {
			go n.reconnect()
		}

	case *events.LoggedOut:
		n.mu.Lock()
		n.connected = false
		n.mu.Unlock()
		n.log.Warnf("WhatsApp session logged out (reason %v), restart to link the device again", v.Reason)

	case *events.StreamError:
		n.log.Errorf("WhatsApp stream error: %v", v)
	}
}

// reconnect retries Connect with exponential backoff until connected
func (n *WhatsAppNotifier) reconnect() {
	n.mu.Lock()
	if n.connected || n.cancelReconnect != nil {
		n.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancelReconnect = cancel
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.cancelReconnect = nil
		n.mu.Unlock()
	}()

	interval := n.backoff.initial
	for attempt := 1; attempt <= n.backoff.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if n.client.IsConnected() {
			n.log.Info("Client already connected at protocol level")
			return
		}

		n.log.Infof("Reconnection attempt %d/%d", attempt, n.backoff.maxRetries)
		if err := n.client.Connect(); err != nil {
			n.log.Errorf("Reconnection attempt %d failed: %v", attempt, err)
			interval = n.backoff.next(interval)
			continue
		}
		return
	}

	n.log.Error("All reconnection attempts failed", nil)
}

// login runs QR code pairing until it succeeds, runs out of attempts or
// ctx is cancelled.
func (n *WhatsAppNotifier) login(ctx context.Context) {
	const (
		maxAttempts  = 5
		attemptDelay = 5 * time.Second
		qrLifetime   = 60 * time.Second
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			n.log.Infof("Generating new QR code (attempt %d/%d)...", attempt, maxAttempts)
			select {
			case <-ctx.Done():
				return
			case <-time.After(attemptDelay):
			}
		}

		paired, err := n.pair(ctx, qrLifetime)
		switch {
		case ctx.Err() != nil:
			n.log.Info("QR login cancelled")
			return
		case err != nil:
			n.log.Error("QR login attempt failed", err)
		case paired:
			n.log.Info("WhatsApp pairing successful")
			return
		default:
			n.log.Warn("QR code was not scanned, retrying with a new one...")
		}
	}

	n.log.Error("Failed to link WhatsApp device after multiple attempts", nil)
}

// pair shows QR codes from one QR channel and reports whether pairing succeeded
func (n *WhatsAppNotifier) pair(ctx context.Context, lifetime time.Duration) (bool, error) {
	qrCtx, cancel := context.WithTimeout(ctx, lifetime)
	defer cancel()

	qrChan, err := n.client.GetQRChannel(qrCtx)
	if err != nil {
		return false, fmt.Errorf("failed to get QR channel: %w", err)
	}

	if !n.client.IsConnected() {
		if err := n.client.Connect(); err != nil {
			return false, fmt.Errorf("failed to connect client: %w", err)
		}
	}

	for {
		select {
		case <-qrCtx.Done():
			return false, nil

		case evt, ok := <-qrChan:
			if !ok {
				return false, nil
			}

			switch evt.Event {
			case "code":
				printQR(evt.Code)
			case "success":
				return true, nil
			case "timeout":
				return false, nil
			default:
				n.log.Infof("Pairing event: %s", evt.Event)
			}
		}
	}
}

func printQR(code string) {
	rule := strings.Repeat("=", 64)
	fmt.Println("\n" + rule)
	fmt.Println("📱 Scan this QR code with WhatsApp to link the review relay")
	fmt.Println(rule)

	qrterminal.GenerateWithConfig(code, qrterminal.Config{
		Level:      qrterminal.M,
		Writer:     os.Stdout,
		HalfBlocks: true,
		QuietZone:  1,
	})

	fmt.Println(rule)
	fmt.Println("Open WhatsApp > Settings > Linked Devices > Link a Device")
	fmt.Println(rule + "\n")
}
