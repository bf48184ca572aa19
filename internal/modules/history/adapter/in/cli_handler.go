package in

import (
	"context"

	historydto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/dto"
	historyin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/port/in"
)

type CLIHandler struct {
	usecase historyin.Usecase
}

func NewCLIHandler(usecase historyin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]historydto.Entry, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Remove(ctx context.Context, id int64) error {
	return h.usecase.Remove(ctx, id)
}

func (h CLIHandler) Clear(ctx context.Context) error {
	return h.usecase.Clear(ctx)
}
