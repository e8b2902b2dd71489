package aisvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwalimux/elimisha/core/course"
)

// dummyService produces deterministic descriptions for dev and tests,
// without calling an external API.
type dummyService struct{}

var _ course.DescriptionGenerator = (*dummyService)(nil)

func NewDummyService() *dummyService {
	return &dummyService{}
}

func (svc dummyService) GenerateDescription(ctx context.Context, name, difficulty string) (string, error) {
	return fmt.Sprintf(
		"%s is a %s-level course. It walks you through the fundamentals step by step and ends with hands-on practice.",
		name, strings.ToLower(difficulty),
	), nil
}
