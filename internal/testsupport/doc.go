// Package testsupport holds helpers shared by package tests: temp-dir backed
// configuration, an opened run store, CSV fixtures, and a scripted lookup
// backend.
package testsupport
