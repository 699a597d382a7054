package app

import (
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/ruralshare/authflow/domain"
	"github.com/ruralshare/authflow/internal/authflow"
	"github.com/ruralshare/authflow/internal/config"
	"github.com/ruralshare/authflow/internal/infrastructure/auth"
	"github.com/ruralshare/authflow/internal/infrastructure/channels/sms"
	"github.com/ruralshare/authflow/internal/infrastructure/channels/whatsapp"
	"github.com/ruralshare/authflow/internal/infrastructure/identity"
	"github.com/ruralshare/authflow/internal/infrastructure/session"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config

	// Infrastructure
	RedisClient  *redis.Client
	SessionStore *session.BoltStore

	// Providers
	IdentityAPI domain.IdentityAPI
	SMSProvider domain.SMSProvider
	WhatsApp    domain.WhatsAppProvider
	Tokens      domain.TokenInspector

	// Flow
	Flow *authflow.Controller
}

// NewContainer creates and initializes all dependencies
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	if err := container.initInfrastructure(); err != nil {
		return nil, err
	}
	container.initProviders()
	container.initFlow()

	return container, nil
}

func (c *Container) initInfrastructure() error {
	c.RedisClient = redis.NewClient(&redis.Options{
		Addr:     c.Config.RedisAddr,
		Password: c.Config.RedisPassword,
		DB:       c.Config.RedisDB,
	})

	store, err := session.NewBoltStore(c.Config.SessionDBPath)
	if err != nil {
		return err
	}
	c.SessionStore = store
	return nil
}

func (c *Container) initProviders() {
	c.IdentityAPI = identity.NewClient(c.Config.IdentityBaseURL, nil)

	c.SMSProvider = sms.NewProvider(
		c.Config.TwilioSID,
		c.Config.TwilioToken,
		c.Config.TwilioFrom,
		c.RedisClient,
		sms.Config{
			CodeLength:   c.Config.OTP_Length,
			TTL:          c.Config.OTP_TTL,
			MaxAttempts:  c.Config.OTP_MaxAttempts,
			ResendWindow: c.Config.OTP_ResendWindow,
		},
	)

	c.WhatsApp = whatsapp.NewClient(whatsapp.Config{
		BaseURL: c.Config.WhatsAppBaseURL,
		APIKey:  c.Config.WhatsAppAPIKey,
	})

	c.Tokens = auth.NewJWTInspector()
}

func (c *Container) initFlow() {
	c.Flow = authflow.New(c.IdentityAPI, c.SMSProvider, c.WhatsApp, authflow.Config{
		DefaultCountryCode: c.Config.DefaultCountryCode,
		WhatsAppAppID:      c.Config.WhatsAppAppID,
		ReadyTimeout:       c.Config.WhatsAppReadyTimeout,
		Sessions:           c.SessionStore,
		Tokens:             c.Tokens,
		Logger:             log.Default(),
	})
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Flow != nil {
		c.Flow.Close()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.SessionStore != nil {
		return c.SessionStore.Close()
	}
	return nil
}
