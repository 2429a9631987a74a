package viewport

// Mesh positions are baked into world space at build time, so the
// vertex stage only applies view-projection.
const vehicleVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aUV;

uniform mat4 uViewProj;

out vec3 vWorldPos;
out vec3 vNormal;
out vec2 vUV;

void main() {
	gl_Position = uViewProj * vec4(aPos, 1.0);
	vWorldPos = aPos;
	vNormal = aNormal;
	vUV = aUV;
}
`

// Three-light studio rig: key, fill, ambient. Specular is Blinn-Phong
// shaped by roughness/metalness, enough to read a gloss wrap against a
// matte one without a full BRDF.
const vehicleFragmentShader = `
#version 410 core

in vec3 vWorldPos;
in vec3 vNormal;
in vec2 vUV;

out vec4 FragColor;

uniform vec4 uBaseColor;
uniform float uRoughness;
uniform float uMetalness;
uniform float uReflectivity;
uniform float uOpacity;
uniform vec3 uEmissive;
uniform bool uUseTexture;
uniform sampler2D uTexture;

uniform vec3 uCameraPos;
uniform vec3 uKeyDir;
uniform vec3 uKeyColor;
uniform vec3 uFillDir;
uniform vec3 uFillColor;
uniform vec3 uAmbient;

void main() {
	vec3 n = normalize(vNormal);
	vec3 v = normalize(uCameraPos - vWorldPos);
	if (!gl_FrontFacing) {
		n = -n;
	}

	vec4 base = uBaseColor;
	if (uUseTexture) {
		base *= texture(uTexture, vUV);
	}

	float ndk = max(dot(n, -uKeyDir), 0.0);
	float ndf = max(dot(n, -uFillDir), 0.0);
	vec3 diffuse = base.rgb * (uAmbient + uKeyColor * ndk + uFillColor * ndf);

	vec3 h = normalize(-uKeyDir + v);
	float shininess = mix(96.0, 8.0, uRoughness);
	float specStrength = (0.04 + 0.9 * uMetalness) * uReflectivity;
	float spec = pow(max(dot(n, h), 0.0), shininess) * specStrength;

	vec3 color = diffuse + uKeyColor * spec + uEmissive;
	FragColor = vec4(color, base.a * uOpacity);
}
`
