package config

import (
	"reflect"
	"strings"
)

// GetSettingsExample uses reflection to generate example settings
// This automatically stays in sync when new fields are added to Settings
func GetSettingsExample() map[string]any {
	var s Settings
	t := reflect.TypeOf(s)
	example := make(map[string]any)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" {
			continue
		}

		// Extract the JSON field name (before comma)
		jsonName := strings.Split(jsonTag, ",")[0]

		example[jsonName] = generateExampleValue(field.Type, jsonName)
	}

	return example
}

// generateExampleValue creates appropriate example values based on type and field name
func generateExampleValue(t reflect.Type, fieldName string) any {
	if t.Kind() == reflect.Ptr {
		switch t.Elem().Kind() {
		case reflect.Bool:
			return fieldName == "history" || fieldName == "watch_files"
		case reflect.Int:
			switch fieldName {
			case "interval_ms":
				return DefaultIntervalMs
			case "refresh_ms":
				return DefaultRefreshMs
			case "max_concurrency":
				return 4
			case "max_log_files":
				return 1000
			case "ssh_port":
				return DefaultSSHPort
			}
			return 10
		}
	}

	if t.Kind() == reflect.String {
		switch fieldName {
		case "authorized_keys":
			return "~/.ssh/authorized_keys"
		case "git_bin":
			return "/usr/bin/git"
		case "parent_branch":
			return "main"
		case "ssh_host":
			return DefaultSSHHost
		default:
			return "example"
		}
	}

	return nil
}
