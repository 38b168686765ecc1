package lifecycle

import (
	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/ops"
)

// EmbedField returns the value of the named field, or "".
func EmbedField(embed *discordgo.MessageEmbed, name string) string {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// patchEmbed updates the embed's known fields in place from the record.
// Fields added by hand or by other tooling are preserved untouched; the
// embed is never replaced wholesale.
func patchEmbed(embed *discordgo.MessageEmbed, f ops.Feature, rec *ops.RequestRecord) {
	fresh := panel.RenderRecordEmbed(f, "", rec)
	byName := make(map[string]string, len(fresh.Fields))
	for _, field := range fresh.Fields {
		byName[field.Name] = field.Value
	}

	for _, field := range embed.Fields {
		if v, ok := byName[field.Name]; ok {
			field.Value = v
		}
	}
	embed.Color = fresh.Color
}
