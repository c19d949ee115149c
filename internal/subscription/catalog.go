package subscription

// LogFileSubscription is the only parameterized subscription; it requires a
// runtime "path" variable and is never auto-started.
const LogFileSubscription = "logFile"

// catalog is the static, compile-time list of known subscriptions. The wire
// names are the exact root fields of the Unraid GraphQL schema and must not
// be changed.
var catalog = []Config{
	{
		Name: "systemMetricsCpu",
		Query: `subscription {
  systemMetricsCpu {
    percentTotal
    cpus {
      percentTotal
      percentUser
      percentSystem
      percentIdle
    }
  }
}`,
		ResourcePath: "unraid://subscriptions/systemMetricsCpu",
		Description:  "Real-time CPU utilization per core and in total",
		AutoStart:    true,
	},
	{
		Name: "systemMetricsMemory",
		Query: `subscription {
  systemMetricsMemory {
    total
    used
    free
    available
    percentUsed
    swapTotal
    swapUsed
  }
}`,
		ResourcePath: "unraid://subscriptions/systemMetricsMemory",
		Description:  "Real-time memory and swap utilization",
		AutoStart:    true,
	},
	{
		Name: "arrayStatus",
		Query: `subscription {
  arrayStatus {
    state
    capacity {
      kilobytes {
        total
        used
        free
      }
    }
  }
}`,
		ResourcePath: "unraid://subscriptions/arrayStatus",
		Description:  "Storage array state and capacity changes",
		AutoStart:    true,
	},
	{
		Name: "dockerStats",
		Query: `subscription {
  dockerStats {
    id
    name
    cpuPercent
    memUsage
    memLimit
    netIO
    blockIO
  }
}`,
		ResourcePath: "unraid://subscriptions/dockerStats",
		Description:  "Docker container resource usage stream",
		AutoStart:    false,
	},
	{
		Name: "vmState",
		Query: `subscription {
  vmState {
    uuid
    name
    state
  }
}`,
		ResourcePath: "unraid://subscriptions/vmState",
		Description:  "Virtual machine state change stream",
		AutoStart:    false,
	},
	{
		Name: "networkStats",
		Query: `subscription {
  networkStats {
    interface
    rxBytes
    txBytes
    rxErrors
    txErrors
  }
}`,
		ResourcePath: "unraid://subscriptions/networkStats",
		Description:  "Network interface throughput stream",
		AutoStart:    false,
	},
	{
		Name: "notificationsOverview",
		Query: `subscription {
  notificationsOverview {
    unread {
      info
      warning
      alert
      total
    }
  }
}`,
		ResourcePath: "unraid://subscriptions/notificationsOverview",
		Description:  "Unread notification counters by severity",
		AutoStart:    true,
	},
	{
		Name: "parityHistory",
		Query: `subscription {
  parityHistory {
    date
    duration
    speed
    status
    errors
  }
}`,
		ResourcePath: "unraid://subscriptions/parityHistory",
		Description:  "Parity check history updates",
		AutoStart:    false,
	},
	{
		Name: LogFileSubscription,
		Query: `subscription LogFile($path: String!) {
  logFile(path: $path) {
    path
    content
    totalLines
  }
}`,
		ResourcePath: "unraid://subscriptions/logFile",
		Description:  "Tail of a server log file; requires a 'path' variable",
		AutoStart:    false,
	},
}

// Catalog returns the static subscription catalog in declaration order.
// Callers receive a copy and cannot mutate the catalog.
func Catalog() []Config {
	out := make([]Config, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogEntry looks up a catalog entry by name.
func CatalogEntry(name string) (Config, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return Config{}, false
}

// AllowedNames returns the names accepted by the query validator, in catalog
// order.
func AllowedNames() []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = c.Name
	}
	return names
}
