package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client is the command surface repositories depend on. Wrapping
// redis.UniversalClient keeps single-instance and future cluster setups
// behind one type.
type Client interface {
	redis.UniversalClient
}
