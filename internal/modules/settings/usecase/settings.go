package usecase

import (
	"context"
	"fmt"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/domain"
	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
	settingsin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/port/in"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/service"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

type Interactor struct {
	svc *service.SettingsService
}

func NewInteractor(svc *service.SettingsService) settingsin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Show(ctx context.Context) (settingsdto.Settings, error) {
	s, err := i.svc.Current(ctx)
	if err != nil {
		return settingsdto.Settings{}, err
	}
	return toDTO(s), nil
}

func (i *Interactor) Update(ctx context.Context, input settingsdto.UpdateInput) (settingsdto.Settings, error) {
	patch := domain.Patch{
		BackgroundColor:    input.BackgroundColor,
		BackgroundImage:    input.BackgroundImage,
		PremultipliedAlpha: input.PremultipliedAlpha,
		Loop:               input.Loop,
	}
	if patch.Empty() {
		return settingsdto.Settings{}, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}
	s, err := i.svc.Update(ctx, patch)
	if err != nil {
		return settingsdto.Settings{}, err
	}
	return toDTO(s), nil
}

func (i *Interactor) Reset(ctx context.Context) (settingsdto.Settings, error) {
	s, err := i.svc.Reset(ctx)
	if err != nil {
		return settingsdto.Settings{}, err
	}
	return toDTO(s), nil
}

func (i *Interactor) Subscribe(fn func(settingsdto.Settings)) func() {
	return i.svc.Subscribe(func(s domain.Settings) { fn(toDTO(s)) })
}

func toDTO(s domain.Settings) settingsdto.Settings {
	return settingsdto.Settings{
		BackgroundColor:    s.BackgroundColor,
		BackgroundImage:    s.BackgroundImage,
		PremultipliedAlpha: s.PremultipliedAlpha,
		Loop:               s.Loop,
	}
}
