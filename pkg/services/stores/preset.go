package stores

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

// LoadPreset reads the boot-time assistant roster. The webhook targets
// used to be hardcoded per assistant; they live in this file now.
func LoadPreset() (doc chat.Preset, err error) {
	if len(settings.Current.AssistantsFile) > 0 {
		var yf *os.File
		yf, err = os.Open(settings.Current.AssistantsFile)
		if err != nil {
			logger().Infow("load preset fail", "file", settings.Current.AssistantsFile, "err", err)
			return
		}
		defer yf.Close()
		err = yaml.NewDecoder(yf).Decode(&doc)
		if err != nil {
			logger().Infow("decode preset fail", "err", err)
			return
		}
	}

	return
}
