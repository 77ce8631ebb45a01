// Package config provides configuration parsing for the filestage server.
//
// The configuration is stored in filestage.json. This package handles
// loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 8080,
//	    "sessionTTL": "30m",
//	    "maxRequestSize": "64MB"
//	  },
//	  "policy": {
//	    "maxSize": "10MB",
//	    "accept": ["image/*", "application/pdf"],
//	    "allowMultiple": true
//	  },
//	  "preview": {
//	    "backend": "s3",
//	    "s3": {
//	      "bucket": "filestage-previews",
//	      "region": "us-east-1",
//	      "endpoint": "http://localhost:9000",
//	      "usePathStyle": true,
//	      "urlExpiry": "15m"
//	    }
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "path": "/metrics"
//	  }
//	}
//
// Sizes are human-readable ("10MB", "512KiB"); durations use Go syntax.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
