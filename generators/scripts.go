package generators

// Model scripts unpacked into the scripts directory on first use.

const narrateScript = `import argparse

import torch
import torchaudio
from zonos.conditioning import make_cond_dict
from zonos.model import Zonos


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--text", required=True)
    parser.add_argument("--out", required=True)
    parser.add_argument("--rate", type=float, default=20.0)
    parser.add_argument("--reference", required=True)
    parser.add_argument("--model", default="Zyphra/Zonos-v0.1-transformer")
    args = parser.parse_args()

    model = Zonos.from_pretrained(args.model, device="cuda")
    wav, sr = torchaudio.load(args.reference)
    speaker = model.make_speaker_embedding(wav, sr)

    cond = make_cond_dict(text=args.text, speaker=speaker, language="en-us", speaking_rate=args.rate)
    codes = model.generate(model.prepare_conditioning(cond))
    audio = model.autoencoder.decode(codes).cpu()
    torchaudio.save(args.out, audio[0], model.autoencoder.sampling_rate)
    del model
    torch.cuda.empty_cache()


if __name__ == "__main__":
    main()
`

const imageScript = `import argparse

import torch
from diffusers import AutoPipelineForText2Image

POSITIVE = ", masterpiece, photorealistic, best quality, super detailed"
NEGATIVE = "low quality, blurry, bad anatomy, worst quality, text, watermark, signature, lowres, deformed, cropped"


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--prompt", required=True)
    parser.add_argument("--out", required=True)
    parser.add_argument("--width", type=int, default=720)
    parser.add_argument("--height", type=int, default=1280)
    parser.add_argument("--model", default="stabilityai/stable-diffusion-xl-base-1.0")
    args = parser.parse_args()

    pipe = AutoPipelineForText2Image.from_pretrained(args.model, torch_dtype=torch.float16).to("cuda")
    width = args.width - args.width % 8
    height = args.height - args.height % 8
    image = pipe(args.prompt + POSITIVE, negative_prompt=NEGATIVE, width=width, height=height).images[0]
    image.resize((args.width, args.height)).save(args.out)
    del pipe
    torch.cuda.empty_cache()


if __name__ == "__main__":
    main()
`

const musicScript = `import argparse
import math

import numpy as np
import soundfile as sf
import torch
from diffusers import StableAudioPipeline

WINDOW = 47.0


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--prompt", required=True)
    parser.add_argument("--out", required=True)
    parser.add_argument("--duration", type=float, required=True)
    parser.add_argument("--model", default="stabilityai/stable-audio-open-1.0")
    args = parser.parse_args()

    pipe = StableAudioPipeline.from_pretrained(args.model, torch_dtype=torch.float16).to("cuda")
    count = int(math.ceil(args.duration / WINDOW)) or 1
    audios = pipe(
        args.prompt,
        negative_prompt="low quality, human vocal voice",
        num_inference_steps=100,
        audio_end_in_s=WINDOW,
        num_waveforms_per_prompt=count,
    ).audios
    output = audios.float().cpu().numpy().transpose(0, 2, 1)
    sf.write(args.out, np.concatenate(output, axis=0), pipe.vae.sampling_rate)
    del pipe
    torch.cuda.empty_cache()


if __name__ == "__main__":
    main()
`
