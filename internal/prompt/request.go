package prompt

// Request is the structured input for one excuse. All fields are optional; an empty string means
// the user left the field unset. Values come straight from the form selects on the client.
type Request struct {
	Delay    string `json:"minutes"` // "" | "3" | "5" | "10" | "15" | "30" | "60"
	Cause    string `json:"cause"`   // e.g. "寝坊", or the playful sentinel "大喜利"
	Audience string `json:"target"`  // e.g. "上司", "友達"
	Detail   string `json:"detail"`  // free text
}

// Mode selects the composition policy and sampling preset
type Mode string

const (
	ModeStandard Mode = "standard"
	ModePlayful  Mode = "playful"
)

// PlayfulCause is the cause value that switches generation to the playful mode
const PlayfulCause = "大喜利"

// Tone is the register the message should be written in
type Tone string

const (
	ToneFormal  Tone = "丁寧"
	ToneCasual  Tone = "カジュアル"
	ToneNeutral Tone = "ニュートラル"
)

// FormalAudiences and CasualAudiences drive the tone lookup
var (
	FormalAudiences = []string{"上司", "同僚", "先輩", "先生(教授)", "バイト先"}
	CasualAudiences = []string{"友達", "家族"}
)

// GenerationConfig holds the sampling parameters sent to the provider
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

var presets = map[Mode]GenerationConfig{
	ModePlayful:  {Temperature: 0.95, TopP: 0.95, MaxOutputTokens: 100},
	ModeStandard: {Temperature: 0.70, TopP: 0.90, MaxOutputTokens: 80},
}

// ConfigFor returns the sampling preset for a mode
func ConfigFor(mode Mode) GenerationConfig {
	if cfg, ok := presets[mode]; ok {
		return cfg
	}
	return presets[ModeStandard]
}

const (
	wholeHourDelay = "60"
	wholeHourLabel = "一時間"
	minuteSuffix   = "分"
	unselected     = "未選択"
	noDetail       = "なし"
)

// DelayLabel normalizes the delay selection into the label the model must reuse verbatim
func DelayLabel(delay string) string {
	switch delay {
	case "":
		return unselected
	case wholeHourDelay:
		return wholeHourLabel
	default:
		return delay + minuteSuffix
	}
}

// ToneFor maps an audience to a tone
func ToneFor(audience string) Tone {
	for _, a := range FormalAudiences {
		if a == audience {
			return ToneFormal
		}
	}
	for _, a := range CasualAudiences {
		if a == audience {
			return ToneCasual
		}
	}
	return ToneNeutral
}

// ModeFor picks the composition policy from the cause
func ModeFor(cause string) Mode {
	if cause == PlayfulCause {
		return ModePlayful
	}
	return ModeStandard
}
