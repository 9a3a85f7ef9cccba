// Package vision implements the image-labelling collaborator on AWS Rekognition.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"assistbot/internal/domain"
)

// RekognitionAPI is the subset of *rekognition.Client used here.
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Rekognition implements domain.Vision with DetectLabels on inline image bytes.
type Rekognition struct {
	client RekognitionAPI
	logger *slog.Logger
}

func NewRekognition(client RekognitionAPI, logger *slog.Logger) *Rekognition {
	return &Rekognition{client: client, logger: logger}
}

// Classify returns labels in the order Rekognition ranked them.
func (r *Rekognition) Classify(ctx context.Context, image []byte, maxLabels int, minConfidence float64) ([]domain.Label, error) {
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &rekognitiontypes.Image{Bytes: image},
		MaxLabels:     aws.Int32(int32(maxLabels)),
		MinConfidence: aws.Float32(float32(minConfidence)),
	})
	if err != nil {
		return nil, domain.Fail("vision", classify(err), fmt.Errorf("detect labels: %w", err))
	}

	labels := make([]domain.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		labels = append(labels, domain.Label{
			Name:       aws.ToString(l.Name),
			Confidence: float64(aws.ToFloat32(l.Confidence)),
		})
	}
	r.logger.Debug("rekognition labels", "count", len(labels), "bytes", len(image))
	return labels, nil
}

func classify(err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var (
		badFormat *rekognitiontypes.InvalidImageFormatException
		tooLarge  *rekognitiontypes.ImageTooLargeException
		badParam  *rekognitiontypes.InvalidParameterException
	)
	switch {
	case errors.As(err, &tooLarge):
		return domain.ReasonTooLarge
	case errors.As(err, &badFormat), errors.As(err, &badParam):
		return domain.ReasonRejected
	}
	return domain.ReasonUnavailable
}
