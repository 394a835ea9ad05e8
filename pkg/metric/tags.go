package metric

const (
	TagEnv     = "env"
	TagService = "service"
)

// TagAsString formats a tag key/value pair in the statsd tag form.
func TagAsString(key, value string) string {
	return key + ":" + value
}
