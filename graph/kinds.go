package graph

import (
	"fmt"
	"sync"
)

// Engine class ids of the kinds with typed layouts.
const (
	ClassGameObject      int32 = 1
	ClassTexture2D       int32 = 28
	ClassTextAsset       int32 = 49
	ClassAnimationClip   int32 = 74
	ClassMonoBehaviour   int32 = 114
	ClassMonoScript      int32 = 115
	ClassAssetBundle     int32 = 142
	ClassResourceManager int32 = 147
	ClassSprite          int32 = 213
	ClassSpriteAtlas     int32 = 687078895
)

// Payload is the decoded content of an object. The set of payload types is
// closed: *Texture2D, *Sprite, *SpriteAtlas, *AnimationClip,
// *MonoBehaviour, *MonoScript, *AssetBundle, *ResourceManager, *TextAsset,
// *GameObject and *Unknown.
type Payload interface {
	payload()
}

// Named is implemented by payloads that carry an m_Name.
type Named interface {
	Payload
	ObjectName() string
}

// Unknown is the payload of classes without a typed layout.
type Unknown struct {
	ClassID int32
	Raw     []byte
}

func (*Unknown) payload() {}

// DecodeFunc reads a payload from l. Failures are reported through the
// layout's reader; the returned payload is discarded when Err is set.
type DecodeFunc func(l *Layout) Payload

type kind struct {
	name   string
	decode DecodeFunc
}

var (
	kindsMu sync.RWMutex
	kinds   = make(map[int32]kind)
	names   = map[int32]string{
		4:   "Transform",
		21:  "Material",
		43:  "Mesh",
		48:  "Shader",
		83:  "AudioClip",
		95:  "Animator",
		128: "Font",
		224: "RectTransform",
	}
)

// RegisterKind adds a typed layout for classID. It panics if the class is
// already registered. Call it from init.
func RegisterKind(classID int32, name string, decode DecodeFunc) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	if _, dup := kinds[classID]; dup {
		panic(fmt.Sprintf("graph: kind %d (%s) registered twice", classID, name))
	}
	kinds[classID] = kind{name: name, decode: decode}
}

func kindFor(classID int32) (kind, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	k, ok := kinds[classID]
	return k, ok
}

// ClassName returns the engine class name for classID, or a numeric
// placeholder for classes this package does not know.
func ClassName(classID int32) string {
	if k, ok := kindFor(classID); ok {
		return k.name
	}
	if n, ok := names[classID]; ok {
		return n
	}
	return fmt.Sprintf("Class%d", classID)
}

// PayloadName returns the m_Name of p, or "" when p has none.
func PayloadName(p Payload) string {
	if n, ok := p.(Named); ok {
		return n.ObjectName()
	}
	return ""
}

func init() {
	RegisterKind(ClassGameObject, "GameObject", decodeGameObject)
	RegisterKind(ClassTexture2D, "Texture2D", decodeTexture2D)
	RegisterKind(ClassTextAsset, "TextAsset", decodeTextAsset)
	RegisterKind(ClassAnimationClip, "AnimationClip", decodeAnimationClip)
	RegisterKind(ClassMonoBehaviour, "MonoBehaviour", decodeMonoBehaviour)
	RegisterKind(ClassMonoScript, "MonoScript", decodeMonoScript)
	RegisterKind(ClassAssetBundle, "AssetBundle", decodeAssetBundle)
	RegisterKind(ClassResourceManager, "ResourceManager", decodeResourceManager)
	RegisterKind(ClassSprite, "Sprite", decodeSprite)
	RegisterKind(ClassSpriteAtlas, "SpriteAtlas", decodeSpriteAtlas)
}
