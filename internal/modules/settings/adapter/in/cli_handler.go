package in

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
	settingsin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/port/in"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

// Keys accepted by Set.
var Keys = []string{"background_color", "background_image", "premultiplied_alpha", "loop"}

type CLIHandler struct {
	usecase settingsin.Usecase
}

func NewCLIHandler(usecase settingsin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Show(ctx context.Context) (settingsdto.Settings, error) {
	return h.usecase.Show(ctx)
}

func (h CLIHandler) Set(ctx context.Context, key, value string) (settingsdto.Settings, error) {
	var input settingsdto.UpdateInput
	name := strings.ToLower(strings.TrimSpace(key))
	switch name {
	case "background_color":
		input.BackgroundColor = &value
	case "background_image":
		input.BackgroundImage = &value
	case "premultiplied_alpha", "loop":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return settingsdto.Settings{}, fmt.Errorf("%w: %s expects true or false", apperrors.ErrInvalidInput, key)
		}
		if name == "loop" {
			input.Loop = &b
		} else {
			input.PremultipliedAlpha = &b
		}
	default:
		return settingsdto.Settings{}, fmt.Errorf("%w: unknown setting %q (want one of %s)", apperrors.ErrInvalidInput, key, strings.Join(Keys, ", "))
	}
	return h.usecase.Update(ctx, input)
}

func (h CLIHandler) Reset(ctx context.Context) (settingsdto.Settings, error) {
	return h.usecase.Reset(ctx)
}
