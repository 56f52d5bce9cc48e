// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort                 port for the REST API, WebSocket hub and /metrics (default 8080)
//   - Timezone                 IANA zone defining the plant's calendar day (default UTC)
//   - Factories                factory IDs served by metrics and alerts
//   - Lock.Window              edit-lock grace period (default 5m)
//   - Refresh.ActiveInterval   live tick while a cycle is open (default 1s)
//   - Refresh.IdleInterval     tick otherwise (default 60s)
//   - Auth.Mode                "apikey" or "none"
//   - Auth.KeyEnv              environment variable holding the expected API key
//   - Auth.Header              HTTP header name (default "X-API-Key")
//   - Auth.SupervisorHashEnv   environment variable holding the supervisor bcrypt hash
//   - Storage.Backend          "memory" or "sqlite" (default memory)
//   - Storage.Path             SQLite file (default plantops.db)
//   - Storage.Retention        in-memory retention; zero keeps everything
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) uses fsnotify to reload the file on change; the
// server applies the new lock window and alert rules without a restart.
package config
