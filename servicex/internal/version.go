package internal

// BuildTime is stamped at link time:
//
//	go build -ldflags "-X go.eggybyte.com/settings/servicex/internal.BuildTime=$(date -u +%Y%m%d%H%M%S)"
var BuildTime = "dev"
