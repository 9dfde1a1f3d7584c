// Package voice turns microphone audio into turret commands.
//
// A Recognizer yields one transcribed utterance per call. The Listener
// normalises each hypothesis and hands exact command matches to a handler;
// everything else is ignored.
//
// # Endpointing
//
// Utterances are cut from the microphone stream by spectral flux: speech
// starts when the flux of a chunk jumps by FluxFactor over the previous one,
// and ends once the flux has stayed below 1/FluxFactor of the speech level for
// QuietTime. A short pre-roll of audio is kept so the first word is not
// clipped.
//
//	ep := voice.NewEndpointer(voice.DefaultConfig())
//	for chunk := range mic {
//	    if utterance, ok := ep.Feed(chunk); ok {
//	        transcribe(utterance)
//	    }
//	}
//
// # Usage
//
//	rec, err := whisper.New(cfg, source)
//	if err != nil {
//	    return err // wraps voice.ErrRecognizerInit
//	}
//	defer rec.Close()
//
//	l := voice.NewListener(rec, func(ctx context.Context, cmd command.Command) error {
//	    return ctrl.Post(ctx, turret.CommandEvent{Command: cmd})
//	}, nil)
//	err = l.Run(ctx)
package voice
