// Package config loads and validates session configuration.
//
// Configuration is resolved in three layers, later layers winning field by
// field:
//
//  1. Built-in defaults from Default()
//  2. JSON file layers added with Loader.AddLayer
//  3. SPARK_* environment variables
//
// The merged result is validated before the loader returns it, so a session
// never starts on a configuration Validate would reject.
package config
