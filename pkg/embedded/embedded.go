package embedded

import (
	_ "embed"
)

// System instructions for excuse generation, one per mode
//
//go:embed data/prompts/standard_system_prompt.txt
var StandardSystemPromptTxt []byte

//go:embed data/prompts/playful_system_prompt.txt
var PlayfulSystemPromptTxt []byte
