package integration

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	ggcrregistry "github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var (
	ctx    context.Context
	cancel context.CancelFunc
)

func TestProxyIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Proxy Integration Suite")
}

var _ = BeforeSuite(func() {
	ctx, cancel = context.WithCancel(context.TODO())
})

var _ = AfterSuite(func() {
	cancel()
})

const titleAnnotation = "org.opencontainers.image.title"

// startRegistry runs an in-memory OCI registry on a loopback port.
func startRegistry() *httptest.Server {
	return httptest.NewServer(ggcrregistry.New())
}

// pushArtifact publishes files as an artifact image, one layer per file with
// the file name carried in the title annotation.
func pushArtifact(refStr string, files map[string][]byte) {
	img := empty.Image
	var err error
	for fileName, data := range files {
		layer := static.NewLayer(data, types.MediaType("application/octet-stream"))
		img, err = mutate.Append(img, mutate.Addendum{
			Layer:       layer,
			Annotations: map[string]string{titleAnnotation: fileName},
		})
		Expect(err).NotTo(HaveOccurred())
	}

	ref, err := name.ParseReference(refStr, name.Insecure)
	Expect(err).NotTo(HaveOccurred())
	Expect(remote.Write(ref, img)).To(Succeed())
}
