package state

import (
	"path/filepath"

	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/internal/sink"
	"github.com/evtele/easee/internal/status"
	"github.com/evtele/easee/log2"
	tele_config "github.com/evtele/easee/tele/config"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Api struct {
		BaseURL string `hcl:"base_url"`
		// Used only when persist.root has no saved token.
		Username   string `hcl:"username"`
		Password   string `hcl:"password"`
		TimeoutSec int    `hcl:"timeout_sec"`
		LogDebug   bool   `hcl:"log_debug"`
	}
	Persist struct {
		// Saved API token lives here.
		Root string `hcl:"root"`
	}
	Sink   sink.Config
	Status status.Config
	Tele   tele_config.Config
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads names in order, later sources override earlier values.
// Relative includes are resolved against directory of first name.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

// Validate checks cross-section requirements before anything connects.
func (c *Config) Validate() error {
	errs := make([]error, 0)
	if c.Tele.Enabled && len(c.Tele.Chargers) == 0 {
		errs = append(errs, errors.NotValidf("config: tele.enable=true tele.chargers=empty"))
	}
	if err := c.Sink.Validate(); err != nil {
		errs = append(errs, err)
	}
	return helpers.FoldErrors(errs)
}
