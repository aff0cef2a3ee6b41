package constants

import "time"

// DefaultInactiveDays is the inactivity threshold applied when none is configured.
const DefaultInactiveDays = 90

// DefaultConcurrency caps simultaneous in-flight inventory calls.
const DefaultConcurrency = 25

// DefaultUsersRoot is the managed-users directory root on target hosts.
const DefaultUsersRoot = `C:\Users`

// DefaultServerMarker excludes directory entries whose platform label contains it.
const DefaultServerMarker = "Server"

// DefaultProbePort is the WS-Management HTTP listener port.
const DefaultProbePort = 5985

// DefaultProbeTimeout bounds a single reachability probe.
const DefaultProbeTimeout = 3 * time.Second

// DefaultRemoteTimeout bounds a single remote inventory or deletion call.
const DefaultRemoteTimeout = 5 * time.Minute

// DefaultMetricsNamespace prefixes every exported metric.
const DefaultMetricsNamespace = "profsweep"
