package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
//	-a   string    HTTP bind address (e.g. ":8080")
//	-g   string    gRPC health bind address (e.g. ":50051")
//	-st  string    storage backend: postgres | redis | memory
//	-d   string    PostgreSQL DSN
//	-ra  string    Redis address
//	-sa  string    access token secret
//	-sr  string    refresh token secret
//	-t   duration  access token validity (e.g. 15m)
//	-r   duration  refresh token validity (e.g. 168h)
//	-l   string    log level
//
// Only these flags are looked at (see flagx.FilterArgs) so the -c and
// -env-file flags of the other layers do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-st", "-d", "-ra", "-sa", "-sr", "-t", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.Storage, "st", config.Storage, "storage backend (postgres|redis|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "ra", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "sa", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "sr", config.RefreshTokenSecret, "refresh token secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
