package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mvnoci/mvnoci/internal/cache"
	"github.com/mvnoci/mvnoci/internal/coords"
	"github.com/mvnoci/mvnoci/internal/proxy"
	"github.com/mvnoci/mvnoci/internal/registry"
	"github.com/mvnoci/mvnoci/pkg/config"
)

var _ = Describe("Proxy end to end", func() {
	var (
		registrySrv *httptest.Server
		repo        config.Repository
		store       *cache.Cache
		p           *proxy.Proxy
		cacheRoot   string
	)

	BeforeEach(func() {
		registrySrv = startRegistry()
		host := registrySrv.Listener.Addr().String()

		pushArtifact(host+"/maven/com-example/demo:2.1.0", map[string][]byte{
			"demo-2.1.0.jar":         []byte("demo jar bytes"),
			"demo-2.1.0.pom":         []byte("<project><artifactId>demo</artifactId></project>"),
			"demo-2.1.0.jar.sha1":    []byte("0123456789abcdef0123456789abcdef01234567"),
			"demo-2.1.0-sources.jar": []byte("demo source bytes"),
		})
		pushArtifact(host+"/maven/com-example/nopom:1.0.0", map[string][]byte{
			"library.bin": []byte("payload without descriptor"),
		})

		repo = config.Repository{
			Name:     "integration",
			URL:      registrySrv.URL + "/maven",
			Insecure: true,
		}

		cacheRoot = GinkgoT().TempDir()
		var err error
		store, err = cache.New(cacheRoot, repo.URL)
		Expect(err).NotTo(HaveOccurred())

		p = proxy.New(repo, registry.NewResolver(repo), proxy.WithStore(store))
		Expect(p.Start()).To(Succeed())
	})

	AfterEach(func() {
		p.Stop()
		registrySrv.Close()
	})

	get := func(path string) *http.Response {
		resp, err := http.Get(p.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	readBody := func(resp *http.Response) string {
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	It("serves a published jar through the repository layout", func() {
		resp := get("/maven/com/example/demo/2.1.0/demo-2.1.0.jar")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("application/java-archive"))
		Expect(readBody(resp)).To(Equal("demo jar bytes"))
	})

	It("serves the descriptor and checksum from the same bundle", func() {
		resp := get("/maven/com/example/demo/2.1.0/demo-2.1.0.pom")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("application/xml"))
		Expect(readBody(resp)).To(ContainSubstring("<artifactId>demo</artifactId>"))

		resp = get("/maven/com/example/demo/2.1.0/demo-2.1.0.jar.sha1")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp)).To(HaveLen(40))

		resp = get("/maven/com/example/demo/2.1.0/demo-2.1.0-sources.jar")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp)).To(Equal("demo source bytes"))
	})

	It("serves files published under unconventional names", func() {
		resp := get("/maven/com/example/nopom/1.0.0/nopom-1.0.0.bin")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp)).To(Equal("payload without descriptor"))
	})

	It("refuses to invent a descriptor the publisher never pushed", func() {
		resp := get("/maven/com/example/nopom/1.0.0/nopom-1.0.0.pom")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(readBody(resp)).To(BeEmpty())
	})

	It("returns 404 with the attempted reference for absent artifacts", func() {
		resp := get("/maven/com/example/absent/9.9.9/absent-9.9.9.jar")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

		c := coords.ParsePath("/maven/com/example/absent/9.9.9/absent-9.9.9.jar")
		Expect(c).NotTo(BeNil())
		ref, err := registry.BuildReference(c, &repo)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Header.Get(proxy.DiagnosticHeader)).To(Equal(ref))
		Expect(readBody(resp)).To(BeEmpty())
	})

	It("rejects requests that do not name an artifact file", func() {
		resp := get("/maven/com/example")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(readBody(resp)).To(BeEmpty())
	})

	It("rejects mutating methods", func() {
		req, err := http.NewRequest(http.MethodPut,
			p.URL()+"/maven/com/example/demo/2.1.0/demo-2.1.0.jar",
			strings.NewReader("data"))
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		Expect(readBody(resp)).To(BeEmpty())
	})

	It("answers HEAD with the same headers as GET and no body", func() {
		getResp := get("/maven/com/example/demo/2.1.0/demo-2.1.0.jar")
		Expect(readBody(getResp)).NotTo(BeEmpty())

		headResp, err := http.Head(p.URL() + "/maven/com/example/demo/2.1.0/demo-2.1.0.jar")
		Expect(err).NotTo(HaveOccurred())
		Expect(headResp.StatusCode).To(Equal(http.StatusOK))
		Expect(headResp.Header.Get("Content-Type")).To(Equal(getResp.Header.Get("Content-Type")))
		Expect(headResp.Header.Get("Content-Length")).To(Equal(getResp.Header.Get("Content-Length")))
		Expect(readBody(headResp)).To(BeEmpty())
	})

	It("keeps serving from the persistent cache after registry and proxy restarts", func() {
		resp := get("/maven/com/example/demo/2.1.0/demo-2.1.0.jar")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp)).To(Equal("demo jar bytes"))

		// A fresh proxy over the same cache must not need the registry.
		p.Stop()
		registrySrv.Close()

		restartedStore, err := cache.New(cacheRoot, repo.URL)
		Expect(err).NotTo(HaveOccurred())
		restarted := proxy.New(repo, registry.NewResolver(repo), proxy.WithStore(restartedStore))
		Expect(restarted.Start()).To(Succeed())
		defer restarted.Stop()

		resp2, err := http.Get(restarted.URL() + "/maven/com/example/demo/2.1.0/demo-2.1.0.jar")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp2.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp2)).To(Equal("demo jar bytes"))
	})
})
