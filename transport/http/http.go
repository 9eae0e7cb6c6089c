// Package http provides the HTTP mirror transport: every mirrored event is
// POSTed to the configured base URL with the topic appended.
package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	metadatapkg "github.com/drblury/mediabridge/internal/runtime/metadata"
	"github.com/drblury/mediabridge/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "http"

// DefaultTimeout bounds each request when the config sets no timeout.
const DefaultTimeout = 10 * time.Second

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

func init() {
	Register()
}

// Register adds the transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.HTTPCapabilities)
}

// Build creates an HTTP publisher.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	base := cfg.GetHTTPPublisherURL()
	if base == "" {
		return transport.Transport{}, errors.New("http: publisher URL is required")
	}

	timeout := cfg.GetHTTPTimeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	publisher, err := PublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: MarshalTo(base),
			Client:             &nethttp.Client{Timeout: timeout},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher}, nil
}

// MarshalTo builds requests against base + "/" + topic. The mirrored
// headers are repeated as CloudEvents HTTP headers so receivers can route
// without decoding the body.
func MarshalTo(base string) http.MarshalMessageFunc {
	base = strings.TrimRight(base, "/")
	return func(topic string, msg *message.Message) (*nethttp.Request, error) {
		req, err := http.DefaultMarshalMessageFunc(base+"/"+topic, msg)
		if err != nil {
			return nil, err
		}
		h := metadatapkg.FromWatermill(msg.Metadata).Headers()
		if h.ContentType != "" {
			req.Header.Set("Content-Type", h.ContentType)
		}
		if h.EventID != "" {
			req.Header.Set("Ce-Id", h.EventID)
		}
		if h.EventType != "" {
			req.Header.Set("Ce-Type", h.EventType)
		}
		if h.Family != "" {
			req.Header.Set("Ce-Mbfamily", h.Family)
		}
		return req, nil
	}
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.HTTPCapabilities
}
