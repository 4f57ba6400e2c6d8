package docs

import (
	"strings"
	"testing"
)

func TestSwaggerInfoRegistered(t *testing.T) {
	if SwaggerInfo == nil {
		t.Fatal("swagger info not initialized")
	}
	if SwaggerInfo.Title != "Coin100 API" {
		t.Fatalf("unexpected title: %q", SwaggerInfo.Title)
	}
	if SwaggerInfo.Host != "localhost:5555" {
		t.Fatalf("unexpected host: %q", SwaggerInfo.Host)
	}
}

func TestSwaggerTemplateCoversRoutes(t *testing.T) {
	for _, route := range []string{
		`"/api/coins"`,
		`"/api/coins/symbol/{symbol}"`,
		`"/api/coins/market/total"`,
		`"/api/rebase/execute"`,
		`"/api/rebase/metrics"`,
		`"/health"`,
	} {
		if !strings.Contains(SwaggerInfo.SwaggerTemplate, route) {
			t.Errorf("swagger template missing %s", route)
		}
	}
}
