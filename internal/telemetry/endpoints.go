package telemetry

// Endpoints are API paths relative to the base URL. Every path can be
// overridden from config for deployments that mount the API differently.
type Endpoints struct {
	CheckAlive   string `yaml:"check_alive" mapstructure:"check_alive"`
	Output       string `yaml:"output" mapstructure:"output"`
	Metric       string `yaml:"metric" mapstructure:"metric"`
	MetricExpand string `yaml:"metric_expand" mapstructure:"metric_expand"`
	Config       string `yaml:"config" mapstructure:"config"`
	List         string `yaml:"list" mapstructure:"list"`
	Stop         string `yaml:"stop" mapstructure:"stop"`
	Client       string `yaml:"client" mapstructure:"client"`
}

// DefaultEndpoints returns the paths served by the fastdeploy API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		CheckAlive:   "check_server_alive",
		Output:       "get_server_output",
		Metric:       "get_server_metric",
		MetricExpand: "get_server_metric_expand",
		Config:       "get_server_config",
		List:         "get_server_list",
		Stop:         "stop_server",
		Client:       "fastdeploy_client",
	}
}

// Merge returns e with every empty path filled from base.
func (e Endpoints) Merge(base Endpoints) Endpoints {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return Endpoints{
		CheckAlive:   pick(e.CheckAlive, base.CheckAlive),
		Output:       pick(e.Output, base.Output),
		Metric:       pick(e.Metric, base.Metric),
		MetricExpand: pick(e.MetricExpand, base.MetricExpand),
		Config:       pick(e.Config, base.Config),
		List:         pick(e.List, base.List),
		Stop:         pick(e.Stop, base.Stop),
		Client:       pick(e.Client, base.Client),
	}
}
