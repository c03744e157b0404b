// Package autoarchive defines the types shared by the page-scan decision
// engine, the archiver, and the service plumbing around them (settings,
// scan jobs, verdicts, archive requests) plus the interfaces each
// subsystem is wired through.
package autoarchive
