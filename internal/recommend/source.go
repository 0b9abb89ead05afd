package recommend

import "context"

// Request carries one recommendation query.
type Request struct {
	Genres      []string
	Moods       []string
	AccessToken string
}

// Source produces ranked songs for a request. Implementations are the
// static dataset filter and the personalized listening-history path.
type Source interface {
	Recommend(ctx context.Context, req Request) ([]RankedSong, error)
}

// Selector routes a request between the static filter and the personalized
// source. The personalized path is taken only when the caller selected no
// genres and no moods but supplied an access token.
type Selector struct {
	Static       Source
	Personalized Source // optional; nil disables the personalized path
}

// Recommend implements Source.
func (s *Selector) Recommend(ctx context.Context, req Request) ([]RankedSong, error) {
	if len(req.Genres) == 0 && len(req.Moods) == 0 {
		if req.AccessToken != "" && s.Personalized != nil {
			return s.Personalized.Recommend(ctx, req)
		}
		return []RankedSong{}, nil
	}
	return s.Static.Recommend(ctx, req)
}
