package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/dmitrijs2005/packkeeper/internal/dbx"
	"github.com/dmitrijs2005/packkeeper/internal/server/models"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/applications"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/documents"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/manifestversions"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/verifications"
)

// fakeState backs every fake repository. Transactions are provided by
// sqlmock; the fakes ignore the DBTX they are bound to.
type fakeState struct {
	mu            sync.Mutex
	apps          map[int64]*models.Application
	subs          map[string]*models.Submission
	docs          map[string][]models.DocumentRecord
	versions      map[string][]*models.ManifestVersion
	verifications []*models.AuthorityVerification

	stats      *models.Statistics
	statsSince time.Time
	statsTop   int
	lastFilter models.SearchFilter
	subGets    int

	createErr error
	appendErr error
}

func newFakeState() *fakeState {
	return &fakeState{
		apps: map[int64]*models.Application{
			42: {
				ID:              42,
				Reference:       "APP/2024/0001",
				LPACode:         "E07000001",
				ApplicantName:   "Jane Doe",
				PropertyAddress: "1 High Street",
				ApplicationType: "householder",
			},
		},
		subs:     map[string]*models.Submission{},
		docs:     map[string][]models.DocumentRecord{},
		versions: map[string][]*models.ManifestVersion{},
	}
}

type fakeRepoManager struct{ st *fakeState }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Applications(dbx.DBTX) applications.Repository {
	return &fakeApplications{m.st}
}
func (m *fakeRepoManager) Submissions(dbx.DBTX) submissions.Repository { return &fakeSubmissions{m.st} }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository     { return &fakeDocuments{m.st} }
func (m *fakeRepoManager) ManifestVersions(dbx.DBTX) manifestversions.Repository {
	return &fakeVersions{m.st}
}
func (m *fakeRepoManager) Verifications(dbx.DBTX) verifications.Repository {
	return &fakeVerifications{m.st}
}

type fakeApplications struct{ st *fakeState }

func (f *fakeApplications) Get(_ context.Context, id int64) (*models.Application, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	a, ok := f.st.apps[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeSubmissions struct{ st *fakeState }

func (f *fakeSubmissions) Create(_ context.Context, s *models.Submission) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.createErr != nil {
		return f.st.createErr
	}
	cp := *s
	f.st.subs[s.SubmissionID] = &cp
	return nil
}

func (f *fakeSubmissions) Get(_ context.Context, id string) (*models.Submission, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	f.st.subGets++
	s, ok := f.st.subs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubmissions) GetForUpdate(ctx context.Context, id string) (*models.Submission, error) {
	return f.Get(ctx, id)
}

func (f *fakeSubmissions) UpdateManifest(_ context.Context, id string, u submissions.ManifestUpdate) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	s, ok := f.st.subs[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.ManifestJSON = u.ManifestJSON
	s.ManifestSHA256 = u.ManifestSHA256
	s.ManifestVersion = u.ManifestVersion
	s.TotalDocuments = u.TotalDocuments
	s.TotalSizeBytes = u.TotalSizeBytes
	s.IntegrityVerified = u.IntegrityVerified
	return nil
}

func (f *fakeSubmissions) UpdateVerification(_ context.Context, id string, u submissions.VerificationUpdate) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	s, ok := f.st.subs[id]
	if !ok {
		return common.ErrorNotFound
	}
	at := u.VerifiedAt
	s.IntegrityVerified = u.IntegrityVerified
	s.Status = u.Status
	s.VerificationErrors = append([]string{}, u.Errors...)
	s.LastVerified = &at
	return nil
}

func (f *fakeSubmissions) Search(_ context.Context, flt models.SearchFilter) ([]*models.Submission, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	f.st.lastFilter = flt
	out := []*models.Submission{}
	for _, s := range f.st.subs {
		if !strings.HasPrefix(s.LPACode, flt.LPACode) || !strings.Contains(s.ApplicationReference, flt.ApplicationReference) {
			continue
		}
		if flt.VerifiedOnly && !s.IntegrityVerified {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeSubmissions) Statistics(_ context.Context, since time.Time, top int) (*models.Statistics, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	f.st.statsSince = since
	f.st.statsTop = top
	if f.st.stats == nil {
		return &models.Statistics{TopLPAs: []models.LPACount{}}, nil
	}
	cp := *f.st.stats
	return &cp, nil
}

type fakeDocuments struct{ st *fakeState }

func (f *fakeDocuments) Replace(_ context.Context, id string, docs []models.DocumentRecord) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	f.st.docs[id] = append([]models.DocumentRecord{}, docs...)
	return nil
}

func (f *fakeDocuments) ListBySubmission(_ context.Context, id string) ([]*models.DocumentRecord, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	out := []*models.DocumentRecord{}
	for i := range f.st.docs[id] {
		d := f.st.docs[id][i]
		out = append(out, &d)
	}
	return out, nil
}

type fakeVersions struct{ st *fakeState }

func (f *fakeVersions) Append(_ context.Context, v *models.ManifestVersion) (int, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.appendErr != nil {
		return 0, f.st.appendErr
	}
	cp := *v
	cp.VersionNumber = len(f.st.versions[v.SubmissionID]) + 1
	f.st.versions[v.SubmissionID] = append(f.st.versions[v.SubmissionID], &cp)
	v.VersionNumber = cp.VersionNumber
	return cp.VersionNumber, nil
}

func (f *fakeVersions) List(_ context.Context, id string) ([]*models.ManifestVersion, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	return append([]*models.ManifestVersion{}, f.st.versions[id]...), nil
}

type fakeVerifications struct{ st *fakeState }

func (f *fakeVerifications) Insert(_ context.Context, v *models.AuthorityVerification) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	cp := *v
	cp.ID = int64(len(f.st.verifications) + 1)
	f.st.verifications = append(f.st.verifications, &cp)
	v.ID = cp.ID
	return nil
}

func (f *fakeVerifications) ListBySubmission(_ context.Context, id string) ([]*models.AuthorityVerification, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	out := []*models.AuthorityVerification{}
	for _, v := range f.st.verifications {
		if v.SubmissionID == id {
			out = append(out, v)
		}
	}
	return out, nil
}
