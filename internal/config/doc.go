// Package config provides configuration parsing for the backoffice server.
//
// The configuration is stored in backoffice.json. This package handles
// loading, saving, and validating it, and converts it into the settings of
// the server, the store and the attachment store.
//
// # Configuration File Structure
//
//	{
//	  "name": "Phòng khám Hoa Sen",
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "trustedProxies": ["10.0.0.0/8"],
//	    "maxSessions": 500,
//	    "maxSessionsPerIP": 20
//	  },
//	  "navigation": {
//	    "homePath": "/",
//	    "minDelay": "150ms"
//	  },
//	  "session": {
//	    "readTimeout": "60s",
//	    "confirmTimeout": "5m"
//	  },
//	  "database": {
//	    "driver": "postgres",
//	    "dsn": "postgres://backoffice@localhost/backoffice",
//	    "seed": false
//	  },
//	  "uploads": {
//	    "backend": "s3",
//	    "s3": {"bucket": "receipts", "region": "ap-southeast-1"}
//	  },
//	  "i18n": {"defaultLanguage": "vi"},
//	  "log": {"level": "info", "format": "json"},
//	  "metrics": {"enabled": true},
//	  "tracing": {"enabled": false},
//	  "auth": {"defaultUser": "", "defaultRoles": []}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFile("backoffice.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
