package dubbing

import (
	"context"
	"path/filepath"

	"dengbej/internal/jobs"
	"dengbej/internal/progress"
	"dengbej/internal/speech"
	"dengbej/internal/textutil"
)

// Translate translates free text to Sorani and dubs it. The result has no
// subtitles and no original media.
func (c *Controller) Translate(ctx context.Context, in TextInput) (Result, error) {
	job, err := c.startJob(ctx, in.RequestID, jobs.KindTranslate, in.Speaker)
	if err != nil {
		return Result{}, err
	}
	ctx = job.ctx
	text := textutil.NormalizeText(in.Text)
	if text == "" {
		err = inputError("No text provided")
		c.finish(ctx, job, nil, err)
		return Result{}, err
	}

	dest := dubbedPath(c.cfg.OutputDir, job.id)
	var res speech.TextResult
	err = c.stage(ctx, job, progress.StageProcessing, "translating and dubbing", func(ctx context.Context) error {
		out, err := c.pipeline.Translate(ctx, speech.TextRequest{Text: text, Speaker: job.speaker, DubbedPath: dest})
		if err != nil {
			return pipelineError("translate", err)
		}
		res = out
		return nil
	})
	var dubbed string
	if err == nil {
		dubbed, err = c.placeDubbed(res.DubbedPath, dest)
	}
	if err != nil {
		c.removeFiles(job.logger, "output", []string{dest}, nil)
		c.finish(ctx, job, nil, err)
		return Result{}, err
	}

	transcription := textutil.NormalizeText(res.Text)
	if transcription == "" {
		transcription = text
	}
	result := Result{
		Transcription: transcription,
		Translated:    textutil.NormalizeText(res.Translated),
		TTS:           c.webPath(dubbed),
	}
	job.record.Transcription = result.Transcription
	job.record.Translated = result.Translated
	job.record.Outputs = map[string]string{"tts": result.TTS}
	c.finish(ctx, job, []string{dubbed}, nil)
	return result, nil
}

// Synthesize speaks text that is already Sorani and returns the web path of
// the audio.
func (c *Controller) Synthesize(ctx context.Context, in TextInput) (string, error) {
	job, err := c.startJob(ctx, in.RequestID, jobs.KindSpeech, in.Speaker)
	if err != nil {
		return "", err
	}
	ctx = job.ctx
	text := textutil.NormalizeText(in.Text)
	if text == "" {
		err = inputError("No text provided")
		c.finish(ctx, job, nil, err)
		return "", err
	}

	dest := filepath.Join(c.cfg.OutputDir, job.id+"-speech.mp3")
	err = c.stage(ctx, job, progress.StageProcessing, "synthesizing speech", func(ctx context.Context) error {
		if err := c.pipeline.Synthesize(ctx, speech.SynthesisRequest{Text: text, Speaker: job.speaker, OutputPath: dest}); err != nil {
			return pipelineError("synthesize", err)
		}
		return nil
	})
	if err == nil {
		_, err = c.placeDubbed("", dest)
	}
	if err != nil {
		c.removeFiles(job.logger, "output", []string{dest}, nil)
		c.finish(ctx, job, nil, err)
		return "", err
	}

	job.record.Translated = text
	job.record.Outputs = map[string]string{"tts": c.webPath(dest)}
	c.finish(ctx, job, []string{dest}, nil)
	return c.webPath(dest), nil
}
