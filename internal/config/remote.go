package config

const defaultRemoteTimeoutSeconds = 15

type RemoteConfig struct {
	Url         string `yaml:"base-url"`
	TimeoutSecs int64  `yaml:"timeout-seconds"`
}

func (r *RemoteConfig) BaseURL() string {
	return r.Url
}

func (r *RemoteConfig) TimeoutSeconds() int64 {
	if r.TimeoutSecs <= 0 {
		return defaultRemoteTimeoutSeconds
	}
	return r.TimeoutSecs
}
