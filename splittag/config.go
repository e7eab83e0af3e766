package splittag

import (
	"github.com/sarchlab/tbtrace/host"
	"github.com/sarchlab/tbtrace/internal/pluginopts"
)

// Magic opcodes that gate instrumentation when Config.Magic is set.
const (
	MagicOpcodeStart uint32 = 0xc0102073 // rdtime x0
	MagicOpcodeStop  uint32 = 0xc0002073 // rdcycle x0
)

// CacheGeometry holds the four knobs exposed per cache level.
type CacheGeometry struct {
	BlockSize int
	Assoc     int
	CacheSize int
	TagLSize  int
}

// Config holds every supported option, after defaulting and parsing.
type Config struct {
	L1I CacheGeometry
	L1D CacheGeometry

	UseL2 bool
	L2    CacheGeometry

	Cores   int
	Policy  string
	Magic   bool
	Limit   int
	SysMode bool
}

// DefaultConfig returns the default cache geometry and options for the
// given host install-time info.
func DefaultConfig(info host.Info) Config {
	cores := 1
	if info.SystemEmulation {
		cores = info.VCPUCount
	}
	if cores == 0 {
		cores = 1
	}

	return Config{
		L1I:     CacheGeometry{BlockSize: 64, Assoc: 8, CacheSize: 16384, TagLSize: 53},
		L1D:     CacheGeometry{BlockSize: 64, Assoc: 8, CacheSize: 16384, TagLSize: 53},
		L2:      CacheGeometry{BlockSize: 64, Assoc: 16, CacheSize: 2097152, TagLSize: 45},
		Cores:   cores,
		Policy:  "lru",
		Limit:   32,
		SysMode: info.SystemEmulation,
	}
}

// ParseArgs parses a key=value argument vector on top of DefaultConfig(info),
// returning a *pluginopts.ConfigError on any unrecognized key, unparseable
// value, or unknown policy.
func ParseArgs(argv []string, info host.Info) (Config, error) {
	cfg := DefaultConfig(info)

	tokens, err := pluginopts.Parse(argv)
	if err != nil {
		return cfg, err
	}

	for _, t := range tokens {
		switch t.Key {
		case "iblksize":
			cfg.L1I.BlockSize, err = pluginopts.ParseInt(t)
		case "iassoc":
			cfg.L1I.Assoc, err = pluginopts.ParseInt(t)
		case "icachesize":
			cfg.L1I.CacheSize, err = pluginopts.ParseInt(t)
		case "itaglsize":
			cfg.L1I.TagLSize, err = pluginopts.ParseInt(t)
		case "dblksize":
			cfg.L1D.BlockSize, err = pluginopts.ParseInt(t)
		case "dassoc":
			cfg.L1D.Assoc, err = pluginopts.ParseInt(t)
		case "dcachesize":
			cfg.L1D.CacheSize, err = pluginopts.ParseInt(t)
		case "dtaglsize":
			cfg.L1D.TagLSize, err = pluginopts.ParseInt(t)
		case "l2blksize":
			cfg.UseL2 = true
			cfg.L2.BlockSize, err = pluginopts.ParseInt(t)
		case "l2assoc":
			cfg.UseL2 = true
			cfg.L2.Assoc, err = pluginopts.ParseInt(t)
		case "l2cachesize":
			cfg.UseL2 = true
			cfg.L2.CacheSize, err = pluginopts.ParseInt(t)
		case "l2taglsize":
			cfg.UseL2 = true
			cfg.L2.TagLSize, err = pluginopts.ParseInt(t)
		case "l2":
			cfg.UseL2, err = pluginopts.ParseBool(t)
		case "cores":
			cfg.Cores, err = pluginopts.ParseInt(t)
		case "replace":
			cfg.Policy, err = validatePolicyName(t)
		case "magic":
			cfg.Magic, err = pluginopts.ParseBool(t)
		case "limit":
			cfg.Limit, err = pluginopts.ParseInt(t)
		default:
			err = &pluginopts.ConfigError{Msg: "option parsing failed: " + t.Key}
		}

		if err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func validatePolicyName(t pluginopts.Token) (string, error) {
	switch t.Value {
	case "lru", "fifo", "rand":
		return t.Value, nil
	default:
		return "", &pluginopts.ConfigError{Opt: "replace", Msg: "invalid replacement policy: " + t.Value}
	}
}
