package main

import (
	"context"
	"log"
	"time"

	"coin100/internal/config"
	"coin100/internal/dns"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	newUpdaterFunc = dns.NewUpdater
	syncFunc       = func(u *dns.Updater, ctx context.Context) (bool, string, error) { return u.Sync(ctx) }
)

// dnsupdate points the configured A record at this host's current public
// IP. Run it from cron on hosts behind a dynamic address.
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	updater, err := newUpdaterFunc(cfg.CloudflareAPIToken, cfg.CloudflareZoneID, cfg.DNSDomain)
	if err != nil {
		log.Fatalf("dns updater misconfigured: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	changed, ip, err := syncFunc(updater, ctx)
	if err != nil {
		log.Fatalf("dns sync failed: %v", err)
	}
	if changed {
		log.Printf("DNS record updated to %s", ip)
		return
	}
	log.Printf("DNS record already current (%s)", ip)
}
