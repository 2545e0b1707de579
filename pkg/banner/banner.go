package banner

import (
	"fmt"

	"forumdb/pkg/config"
)

const banner = `
███████╗ ██████╗ ██████╗ ██╗   ██╗███╗   ███╗██████╗ ██████╗
██╔════╝██╔═══██╗██╔══██╗██║   ██║████╗ ████║██╔══██╗██╔══██╗
█████╗  ██║   ██║██████╔╝██║   ██║██╔████╔██║██║  ██║██████╔╝
██╔══╝  ██║   ██║██╔══██╗██║   ██║██║╚██╔╝██║██║  ██║██╔══██╗
██║     ╚██████╔╝██║  ██║╚██████╔╝██║ ╚═╝ ██║██████╔╝██████╔╝
╚═╝      ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝     ╚═╝╚═════╝ ╚═════╝
`

// Print writes the startup banner with the effective runtime settings
// and a short production checklist.
func Print(eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", eff.Addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", eff.Source)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println(`curl -X POST 'http://<host>:<port>/v1/threads' -d '{"author":"u1","title":"hello"}'`)
	fmt.Println(`curl -X POST 'http://<host>:<port>/v1/threads/<id>/messages' -d '{"author":"u1","body":{"text":"hi"}}'`)
	fmt.Println(`curl 'http://<host>:<port>/v1/threads/<id>/tree?max_depth=5'`)
	fmt.Println(`curl 'http://<host>:<port>/v1/threads?sort=active'`)

	fmt.Println("\n== Production? ================================================")
	if n := len(cfg.Security.APIKeys.Backend); n > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", n)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if n := len(cfg.Security.APIKeys.Frontend); n > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", n)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if n := len(cfg.Security.APIKeys.Admin); n > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", n)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}
	if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}
	if cfg.Retention.Enabled {
		cron := cfg.Retention.Cron
		if cron == "" {
			cron = "0 2 * * *"
		}
		fmt.Printf("- Retention: enabled (cron=%s period=%s)\n", cron, cfg.Retention.Period.Duration())
	} else {
		fmt.Println("- Retention: disabled (soft-deleted threads are kept forever)")
	}

	fmt.Println("\n== Logs =======================================================")
}
