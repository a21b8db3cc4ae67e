package version

import "fmt"

// Service - имя сервиса в логах и метриках.
const Service = "printshop"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// Version возвращает версию сборки.
func Version() string { return version }

func String() string {
	return fmt.Sprintf("service=%s version=%s commit=%s date=%s", Service, version, commit, date)
}
