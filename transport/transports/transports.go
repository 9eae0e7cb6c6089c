// Package transports imports every built-in mirror transport so that each
// registers itself with the default registry.
package transports

import (
	_ "github.com/drblury/mediabridge/transport/aws"
	_ "github.com/drblury/mediabridge/transport/channel"
	_ "github.com/drblury/mediabridge/transport/http"
	_ "github.com/drblury/mediabridge/transport/io"
	_ "github.com/drblury/mediabridge/transport/kafka"
	_ "github.com/drblury/mediabridge/transport/nats"
	_ "github.com/drblury/mediabridge/transport/rabbitmq"
)
