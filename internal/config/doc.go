// Package config provides simple, local-first configuration management for Plugdeck.
//
// All configuration is stored in a single JSON file under the .plugdeck/
// data directory, next to logs and job history:
//
//	.plugdeck/
//	├── config.json        # Main configuration (committed to git)
//	├── .gitignore         # Smart defaults for what to ignore
//	├── plugdeck.log       # Rotating-ish debug log
//	└── history/           # Completed job records
//
// The config.json file contains simple key-value settings:
//
//	{
//	  "python_exe": "/usr/bin/python3",
//	  "default_tool": "conda",
//	  "channels": ["conda-forge"],
//	  "extra_index_urls": [],
//	  "theme": "slate",
//	  "debug": false
//	}
//
// Environment Variable Support:
//
// Configuration values can reference environment variables using $VAR or ${VAR} syntax:
//
//	{
//	  "conda_prefix": "${CONDA_PREFIX}",
//	  "extra_index_urls": ["https://$PIP_MIRROR_HOST/simple"]
//	}
//
// Example usage:
//
//	manager := config.NewManager(home)
//	if err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := manager.Get()
//	fmt.Println("catalog:", cfg.CatalogURL)
//
//	// Update a setting
//	manager.Set("default_tool", "pip")
package config
