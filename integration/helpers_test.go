//go:build integration

package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit"
	"github.com/meigma/assetkit/graph"
	"github.com/meigma/assetkit/internal/testutil"
	"github.com/meigma/assetkit/raster"
)

const statsDefinitions = `
classes:
  - assembly: Assembly-CSharp
    namespace: Game
    class: Stats
    fields:
      - {name: hp, type: int}
      - {name: title, type: string}
`

// gradient is a w x h RGBA32 texture in stored row order.
func gradient(w, h int) []byte {
	var out []byte
	for y := range h {
		for x := range w {
			out = append(out, byte(x*16), byte(y*16), 128, 255)
		}
	}
	return out
}

// checker is an opaque red and black image that survives DXT1 unchanged.
func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			i := img.PixOffset(x, y)
			if (x/4+y/4)%2 == 0 {
				img.Pix[i] = 255
			}
			img.Pix[i+3] = 255
		}
	}
	return img
}

// exportBundle builds an archive holding a small game: two textures, a
// sprite, a clip and a scripted component.
func exportBundle(t *testing.T) []byte {
	t.Helper()

	fields := testutil.NewWriter()
	fields.I32(42)
	fields.AlignedString("knight")

	main := testutil.BuildContainer(t, testutil.ContainerSpec{
		Objects: []testutil.Object{
			{PathID: 1, ClassID: graph.ClassAssetBundle, Data: testutil.AssetBundle("game",
				[]testutil.Ref{{PathID: 2}, {PathID: 3}, {PathID: 4}},
				[]testutil.BundleEntry{
					{Path: "assets/ui/panel.png", PreloadIndex: 0, PreloadSize: 1, Asset: testutil.Ref{PathID: 2}},
					{Path: "assets/ui/tiles.png", PreloadIndex: 1, PreloadSize: 1, Asset: testutil.Ref{PathID: 3}},
					{Path: "assets/anim/walk.anim", PreloadIndex: 2, PreloadSize: 1, Asset: testutil.Ref{PathID: 4}},
				})},
			{PathID: 2, ClassID: graph.ClassTexture2D, Data: testutil.Texture2D(testutil.TextureSpec{
				Name: "panel", Width: 8, Height: 8, Format: int32(raster.RGBA32), Data: gradient(8, 8),
			})},
			{PathID: 3, ClassID: graph.ClassTexture2D, Data: testutil.Texture2D(testutil.TextureSpec{
				Name: "tiles", Width: 8, Height: 8, Format: int32(raster.DXT1), Data: testutil.EncodeDXT1(checker(8, 8)),
			})},
			{PathID: 4, ClassID: graph.ClassAnimationClip, Data: testutil.AnimationClip("walk", 30, []testutil.Curve{
				{Path: "Parameters/ParamBodyAngleX", Attribute: "m_Value", Keys: []testutil.Key{{Time: 0, Value: 0, In: 0, Out: 0}, {Time: 1, Value: 10, In: 0, Out: 0}}},
				{Path: "Parameters/ParamEyeLOpen", Attribute: "m_Value", Keys: []testutil.Key{{Time: 0, Value: 1, In: 0, Out: 0}, {Time: 0.5, Value: 0, In: 0, Out: 0}, {Time: 1, Value: 1, In: 0, Out: 0}}},
			}, []testutil.Event{{Time: 0.5, Data: "step"}})},
			{PathID: 5, ClassID: graph.ClassMonoScript, Data: testutil.MonoScript("Stats", "Game", "Assembly-CSharp.dll")},
			{PathID: 6, ClassID: graph.ClassMonoBehaviour, Data: testutil.MonoBehaviour(
				testutil.Ref{}, testutil.Ref{PathID: 5}, "player", fields.Bytes())},
			{PathID: 7, ClassID: graph.ClassSprite, Data: testutil.Sprite(testutil.SpriteSpec{
				Name: "panel_corner",
				Rect: [4]float32{0, 0, 4, 4},
				RenderData: testutil.RenderData{
					Texture:     testutil.Ref{PathID: 2},
					TextureRect: [4]float32{0, 0, 4, 4},
					Settings:    1 << 1,
				},
			})},
		},
	})

	return testutil.BuildBundle(t, testutil.BundleSpec{
		Compression: testutil.BundleLZ4,
		BlockSize:   512,
		Nodes: []testutil.BundleNode{
			{Path: "CAB-game/CAB-game", Data: main, Serialized: true},
		},
	})
}

// exporter writes converted assets under dir, one file per object.
type exporter struct {
	s   *assetkit.Session
	dir string

	mu      sync.Mutex
	written map[string]string
}

func newExporter(t *testing.T, s *assetkit.Session) *exporter {
	t.Helper()
	return &exporter{s: s, dir: t.TempDir(), written: make(map[string]string)}
}

// fileName derives a unique file name from an item's display text.
func fileName(it assetkit.AssetItem, ext string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, it.Text)
	return fmt.Sprintf("%s%s%s", name, it.UniqueID, ext)
}

func (e *exporter) write(it assetkit.AssetItem, ext string, data []byte) error {
	path := filepath.Join(e.dir, fileName(it, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // test output
		return err
	}
	e.mu.Lock()
	e.written[it.UniqueID] = path
	e.mu.Unlock()
	return nil
}

func (e *exporter) writePNG(it assetkit.AssetItem, img image.Image) error {
	path := filepath.Join(e.dir, fileName(it, ".png"))
	f, err := os.Create(path) //nolint:gosec // test output
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	e.mu.Lock()
	e.written[it.UniqueID] = path
	e.mu.Unlock()
	return nil
}

// export converts every listed item it knows how to export and returns the
// per-object failures.
func (e *exporter) export(items []assetkit.AssetItem) []*assetkit.ObjectError {
	byObject := make(map[*graph.Object]assetkit.AssetItem, len(items))
	objs := make([]*graph.Object, 0, len(items))
	for _, it := range items {
		byObject[it.Object] = it
		objs = append(objs, it.Object)
	}

	return e.s.Process(objs, func(obj *graph.Object) error {
		it := byObject[obj]
		switch it.ClassID {
		case graph.ClassTexture2D:
			img, err := e.s.Texture(obj, true)
			if err != nil {
				return err
			}
			return e.writePNG(it, img)
		case graph.ClassSprite:
			img, err := e.s.SpriteImage(obj, raster.MaskOn)
			if err != nil {
				return err
			}
			return e.writePNG(it, img)
		case graph.ClassAnimationClip:
			motions, err := e.s.Motion(obj)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(motions[0], "", "  ")
			if err != nil {
				return err
			}
			return e.write(it, ".motion3.json", data)
		case graph.ClassMonoBehaviour:
			tree, err := e.s.Dump(obj)
			if err != nil {
				return err
			}
			data, err := json.Marshal(tree)
			if err != nil {
				return err
			}
			return e.write(it, ".json", data)
		}
		return nil
	})
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // test input
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}
