package loop

import (
	"fmt"
	"time"
)

const systemInstruction = `Please create an artistic Pixar-style image where a steaming cup of coffee is the central element, emitting a warm light.
The background is abstract and colorful, suggesting a morning in tune with the outside weather. If the weather is cold, make it look cold, if it's hot outside make it like a good weather.
- Make sure you type correctly
- Display only once the temperature in degrees celsius

<context>
    todays date: %s
</context>
`

// SystemPrompt returns the fixed instruction with now's date filled in.
func SystemPrompt(now time.Time) string {
	return fmt.Sprintf(systemInstruction, now.Format("1/2/2006"))
}
