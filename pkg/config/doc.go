// Package config provides the process configuration surface for replayd.
//
// Values are resolved with the following precedence (highest first):
//
//  1. Environment variables (REPLAYD_*)
//  2. Config file (replayd.yaml in the working directory, or REPLAYD_CONFIG)
//  3. Default values
//
// Sources records where each applied value came from so "which setting won"
// questions can be answered from a debug log.
package config
