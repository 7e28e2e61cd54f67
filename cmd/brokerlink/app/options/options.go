package options

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/options"
)

// EnvPrefix prefixes environment overrides, e.g. BROKERLINK_MQTT_BROKER.
const EnvPrefix = "BROKERLINK"

type Options struct {
	// ConfigFile is an optional YAML, JSON or TOML file. Flags and
	// environment variables take precedence over it.
	ConfigFile string `json:"-" mapstructure:"-"`

	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions  *options.HttpOptions  `json:"http" mapstructure:"http"`
	ShellOptions *options.ShellOptions `json:"shell" mapstructure:"shell"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

func NewOptions() *Options {
	return &Options{
		MqttOptions:  options.NewMqttOptions(),
		HttpOptions:  options.NewHttpOptions(),
		ShellOptions: options.NewShellOptions(),
		Log:          log.NewOptions(),
	}
}

func (o *Options) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fss.FlagSet("global").StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Read configuration from this file.")
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.ShellOptions.AddFlags(fss.FlagSet("shell"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// NewViper returns a viper instance bound to fs and the environment.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load merges the config file, environment and flags from v into o.
func (o *Options) Load(v *viper.Viper) error {
	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", o.ConfigFile, err)
		}
	}
	if err := v.Unmarshal(o); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

func (o *Options) Complete() error {
	o.MqttOptions.Complete()
	return nil
}

func (o *Options) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.ShellOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Reload decodes v into a fresh copy of o. A generated client ID is kept
// unless the new configuration names one.
func (o *Options) Reload(v *viper.Viper) (*Options, error) {
	next := NewOptions()
	next.ConfigFile = o.ConfigFile
	if err := v.Unmarshal(next); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if next.MqttOptions.ClientID == "" {
		next.MqttOptions.ClientID = o.MqttOptions.ClientID
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
