package dns

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
)

const defaultIPEndpoint = "https://api.ipify.org"

// cloudflareAPI is the slice of the Cloudflare client the updater needs.
type cloudflareAPI interface {
	ListDNSRecords(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.ListDNSRecordsParams) ([]cloudflare.DNSRecord, *cloudflare.ResultInfo, error)
	UpdateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UpdateDNSRecordParams) (cloudflare.DNSRecord, error)
	CreateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.CreateDNSRecordParams) (cloudflare.DNSRecord, error)
}

// Updater keeps a zone's A record pointed at this host's public IP.
type Updater struct {
	api        cloudflareAPI
	client     *http.Client
	zoneID     string
	domain     string
	ipEndpoint string
}

func NewUpdater(apiToken, zoneID, domain string) (*Updater, error) {
	if apiToken == "" || zoneID == "" || domain == "" {
		return nil, fmt.Errorf("cloudflare token, zone ID and domain are all required")
	}
	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, fmt.Errorf("creating cloudflare client: %w", err)
	}
	return &Updater{
		api:        api,
		client:     &http.Client{Timeout: 10 * time.Second},
		zoneID:     zoneID,
		domain:     domain,
		ipEndpoint: defaultIPEndpoint,
	}, nil
}

// PublicIP asks an external echo service what this host's address looks
// like from the outside.
func (u *Updater) PublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.ipEndpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching public IP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("IP echo service returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading IP echo response: %w", err)
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("IP echo service returned an empty body")
	}
	return ip, nil
}

// Sync points the domain's A record at the current public IP, creating
// the record when the zone has none. Returns whether a change was written
// and the current IP.
func (u *Updater) Sync(ctx context.Context) (bool, string, error) {
	ip, err := u.PublicIP(ctx)
	if err != nil {
		return false, "", err
	}

	rc := cloudflare.ZoneIdentifier(u.zoneID)
	records, _, err := u.api.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{
		Type: "A",
		Name: u.domain,
	})
	if err != nil {
		return false, ip, fmt.Errorf("listing DNS records: %w", err)
	}
	if len(records) == 0 {
		proxied := true
		_, err := u.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
			Type:    "A",
			Name:    u.domain,
			Content: ip,
			TTL:     1, // automatic
			Proxied: &proxied,
		})
		if err != nil {
			return false, ip, fmt.Errorf("creating DNS record: %w", err)
		}
		log.Printf("created A record for %s -> %s", u.domain, ip)
		return true, ip, nil
	}

	record := records[0]
	if record.Content == ip {
		log.Printf("A record for %s already points at %s", u.domain, ip)
		return false, ip, nil
	}

	_, err = u.api.UpdateDNSRecord(ctx, rc, cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    record.Type,
		Name:    record.Name,
		Content: ip,
		TTL:     record.TTL,
		Proxied: record.Proxied,
	})
	if err != nil {
		return false, ip, fmt.Errorf("updating DNS record: %w", err)
	}
	log.Printf("updated A record for %s: %s -> %s", u.domain, record.Content, ip)
	return true, ip, nil
}
